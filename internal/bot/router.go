package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaign-bot-backend/internal/common/config"
	"campaign-bot-backend/internal/common/logger"
	"campaign-bot-backend/internal/features/broadcast"
	campaign "campaign-bot-backend/internal/features/campaign/models"
	campaignrepo "campaign-bot-backend/internal/features/campaign/repository"
	fulfillment "campaign-bot-backend/internal/features/fulfillment/service"
	usermodels "campaign-bot-backend/internal/features/user/models"
	userrepo "campaign-bot-backend/internal/features/user/repository"
	withdrawal "campaign-bot-backend/internal/features/withdrawal/service"
	"campaign-bot-backend/internal/platform/telegram"
	"campaign-bot-backend/internal/platform/ton"
)

// Router dispatches inbound Telegram updates: commands, inline button
// presses, and the free-text steps of active conversations. Admin
// identity comes from the injected allow-list, never from ambient
// state.
type Router struct {
	cfg           *config.Config
	tg            *telegram.Client
	users         userrepo.Repository
	items         campaignrepo.Repository
	orchestrator  *fulfillment.Orchestrator
	withdrawals   *withdrawal.Processor
	publisher     *broadcast.Publisher
	conversations *ConversationStore
	log           zerolog.Logger
	now           func() time.Time
}

func NewRouter(
	cfg *config.Config,
	tg *telegram.Client,
	users userrepo.Repository,
	items campaignrepo.Repository,
	orchestrator *fulfillment.Orchestrator,
	withdrawals *withdrawal.Processor,
	publisher *broadcast.Publisher,
	conversations *ConversationStore,
) *Router {
	return &Router{
		cfg:           cfg,
		tg:            tg,
		users:         users,
		items:         items,
		orchestrator:  orchestrator,
		withdrawals:   withdrawals,
		publisher:     publisher,
		conversations: conversations,
		log:           logger.With("bot"),
		now:           time.Now,
	}
}

// HandleUpdate processes one webhook update. Errors are handled by
// replying to the user; the webhook itself always succeeds so Telegram
// does not redeliver.
func (r *Router) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		text := strings.TrimSpace(upd.Message.Text)
		if strings.HasPrefix(text, "/") {
			r.handleCommand(ctx, upd.Message.From.ID, text)
		} else if text != "" {
			r.handleText(ctx, upd.Message.From.ID, text)
		}
	}
}

func (r *Router) handleCommand(ctx context.Context, userID int64, text string) {
	fields := strings.Fields(text)
	command := strings.TrimPrefix(fields[0], "/")
	args := fields[1:]

	switch command {
	case "start":
		r.cmdStart(ctx, userID)
	case "update":
		r.cmdUpdate(ctx, userID)
	case "balance":
		r.cmdBalance(ctx, userID)
	case "withdraw":
		r.cmdWithdraw(ctx, userID)
	case "tasks":
		r.cmdList(ctx, userID, campaign.KindTask)
	case "airdrops":
		r.cmdList(ctx, userID, campaign.KindAirdrop)
	case "newtask":
		r.cmdNewTask(ctx, userID, args)
	case "newairdrop":
		r.cmdNewAirdrop(ctx, userID, args)
	default:
		r.reply(ctx, userID, "Unknown command. Available: /start /update /balance /withdraw /tasks /airdrops")
	}
}

func (r *Router) cmdStart(ctx context.Context, userID int64) {
	if _, err := r.users.Get(ctx, userID); err == nil {
		r.reply(ctx, userID, "You already have an account. Use /update to change your payout address.")
		return
	}
	if err := r.conversations.Set(ctx, userID, &Conversation{State: StateAwaitingAddress}); err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to start registration conversation")
		return
	}
	r.reply(ctx, userID, "Welcome! Send your TON payout address to register:")
}

func (r *Router) cmdUpdate(ctx context.Context, userID int64) {
	if _, err := r.users.Get(ctx, userID); err != nil {
		r.reply(ctx, userID, "You do not have an account yet. Use /start to create one.")
		return
	}
	if err := r.conversations.Set(ctx, userID, &Conversation{State: StateAwaitingNewAddress}); err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to start update conversation")
		return
	}
	r.reply(ctx, userID, "Send your new TON payout address:")
}

func (r *Router) cmdBalance(ctx context.Context, userID int64) {
	if _, err := r.users.Get(ctx, userID); err != nil {
		r.reply(ctx, userID, "You do not have an account yet. Use /start to create one.")
		return
	}
	balance, err := r.users.Balance(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to read balance")
		r.reply(ctx, userID, "Could not read your balance right now, try again later.")
		return
	}
	r.reply(ctx, userID, fmt.Sprintf("Your balance: %d tokens.", balance))
}

func (r *Router) cmdWithdraw(ctx context.Context, userID int64) {
	receipt, err := r.withdrawals.Withdraw(ctx, userID)
	switch {
	case err == nil:
		r.reply(ctx, userID, fmt.Sprintf("Sent %d tokens to %s.\nTransaction: %s", receipt.Amount, receipt.Address, receipt.TxHash))
	case errors.Is(err, userrepo.ErrUserNotFound):
		r.reply(ctx, userID, "You do not have an account yet. Use /start to create one.")
	case errors.Is(err, withdrawal.ErrInsufficientBalance):
		r.reply(ctx, userID, "Your balance is empty, nothing to withdraw.")
	case errors.Is(err, withdrawal.ErrTransferFailed):
		r.reply(ctx, userID, "The transfer failed. Your balance has been restored, please try again later.")
	default:
		r.log.Error().Err(err).Int64("user_id", userID).Msg("withdrawal failed")
		r.reply(ctx, userID, "Something went wrong, please try again later.")
	}
}

func (r *Router) cmdList(ctx context.Context, userID int64, kind campaign.ItemKind) {
	items, err := r.items.List(ctx, kind)
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(kind)).Msg("failed to list items")
		r.reply(ctx, userID, "Could not load the list right now, try again later.")
		return
	}

	now := r.now()
	var lines []string
	var rows [][]telegram.InlineButton
	for _, item := range items {
		if item.Expired(now) {
			continue
		}
		label := fmt.Sprintf("#%d - %d tokens", item.ID, item.RewardAmount)
		if item.Kind == campaign.KindTask {
			lines = append(lines, fmt.Sprintf("#%d: %s (%d tokens, until %s)", item.ID, item.PostURL, item.RewardAmount, item.ExpiresAt.Format("Jan 2 15:04")))
		} else {
			lines = append(lines, fmt.Sprintf("#%d: %d tokens, until %s", item.ID, item.RewardAmount, item.ExpiresAt.Format("Jan 2 15:04")))
		}
		rows = append(rows, []telegram.InlineButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("%s:%d", item.Kind, item.ID),
		}})
	}

	if len(lines) == 0 {
		r.reply(ctx, userID, "Nothing active right now. Check back later!")
		return
	}

	header := "Active tasks:\n"
	if kind == campaign.KindAirdrop {
		header = "Active airdrops:\n"
	}
	if err := r.tg.SendMessageWithButtons(ctx, userID, header+strings.Join(lines, "\n"), rows); err != nil {
		r.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to send item list")
	}
}

func (r *Router) cmdNewTask(ctx context.Context, userID int64, args []string) {
	if !r.cfg.IsAdmin(userID) {
		r.reply(ctx, userID, "This command is for admins only.")
		return
	}
	if len(args) != 3 {
		r.reply(ctx, userID, "Usage: /newtask <post_url> <reward> <minutes>")
		return
	}

	tweetID, err := campaign.TweetIDFromURL(args[0])
	if err != nil {
		r.reply(ctx, userID, "That does not look like a tweet URL.")
		return
	}
	reward, minutes, ok := r.parseRewardAndMinutes(ctx, userID, args[1], args[2])
	if !ok {
		return
	}

	now := r.now()
	item := &campaign.Item{
		Kind:         campaign.KindTask,
		RewardAmount: reward,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(minutes) * time.Minute),
		PostURL:      args[0],
		TweetID:      tweetID,
	}
	r.publish(ctx, userID, item)
}

func (r *Router) cmdNewAirdrop(ctx context.Context, userID int64, args []string) {
	if !r.cfg.IsAdmin(userID) {
		r.reply(ctx, userID, "This command is for admins only.")
		return
	}
	if len(args) != 2 {
		r.reply(ctx, userID, "Usage: /newairdrop <reward> <minutes>")
		return
	}
	reward, minutes, ok := r.parseRewardAndMinutes(ctx, userID, args[0], args[1])
	if !ok {
		return
	}

	now := r.now()
	item := &campaign.Item{
		Kind:         campaign.KindAirdrop,
		RewardAmount: reward,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(minutes) * time.Minute),
	}
	r.publish(ctx, userID, item)
}

func (r *Router) parseRewardAndMinutes(ctx context.Context, userID int64, rewardArg, minutesArg string) (int64, int64, bool) {
	reward, err := strconv.ParseInt(rewardArg, 10, 64)
	if err != nil || reward <= 0 {
		r.reply(ctx, userID, "Reward must be a positive number of tokens.")
		return 0, 0, false
	}
	minutes, err := strconv.ParseInt(minutesArg, 10, 64)
	if err != nil || minutes <= 0 {
		r.reply(ctx, userID, "Expiration must be a positive number of minutes.")
		return 0, 0, false
	}
	return reward, minutes, true
}

func (r *Router) publish(ctx context.Context, adminID int64, item *campaign.Item) {
	if err := r.items.Create(ctx, item); err != nil {
		r.log.Error().Err(err).Str("kind", string(item.Kind)).Msg("failed to create item")
		r.reply(ctx, adminID, "Failed to create the item, see logs.")
		return
	}
	if err := r.publisher.Announce(ctx, item.Kind, item.ID); err != nil {
		r.log.Error().Err(err).Int64("item_id", item.ID).Msg("failed to enqueue announcement")
		r.reply(ctx, adminID, fmt.Sprintf("Item #%d created but the announcement could not be queued.", item.ID))
		return
	}
	r.reply(ctx, adminID, fmt.Sprintf("Item #%d created, announcement queued.", item.ID))
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if err := r.tg.AnswerCallback(ctx, cb.ID); err != nil {
		r.log.Debug().Err(err).Msg("failed to answer callback")
	}

	kindStr, idStr, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}
	kind := campaign.ItemKind(kindStr)
	if !kind.Valid() {
		return
	}

	userID := cb.From.ID
	if _, err := r.users.Get(ctx, userID); err != nil {
		r.reply(ctx, userID, "You need an account first. Use /start to create one.")
		return
	}

	switch kind {
	case campaign.KindAirdrop:
		if err := r.orchestrator.SubmitParticipation(ctx, userID, itemID, kind, ""); err != nil {
			r.log.Debug().Err(err).Int64("user_id", userID).Int64("item_id", itemID).Msg("airdrop participation rejected")
		}
	case campaign.KindTask:
		// The reply text is part of the task, so collect it before the
		// fulfillment flow starts.
		if err := r.conversations.Set(ctx, userID, &Conversation{State: StateAwaitingComment, ItemID: itemID}); err != nil {
			r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to start comment conversation")
			return
		}
		r.reply(ctx, userID, "Send the comment you want to post as your reply:")
	}
}

func (r *Router) handleText(ctx context.Context, userID int64, text string) {
	conv, err := r.conversations.Get(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load conversation")
		return
	}
	if conv == nil {
		return
	}

	switch conv.State {
	case StateAwaitingAddress:
		if !ton.ValidAddress(text) {
			r.reply(ctx, userID, "That does not look like a valid TON address, try again:")
			return
		}
		user := &usermodels.User{TelegramID: userID, PayoutAddress: text, CreatedAt: r.now()}
		if err := r.users.Create(ctx, user); err != nil && !errors.Is(err, userrepo.ErrUserAlreadyExists) {
			r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to create user")
			r.reply(ctx, userID, "Registration failed, please try again.")
			return
		}
		_ = r.conversations.Clear(ctx, userID)
		r.reply(ctx, userID, "Account created! Use /tasks and /airdrops to start earning.")

	case StateAwaitingNewAddress:
		if !ton.ValidAddress(text) {
			r.reply(ctx, userID, "That does not look like a valid TON address, try again:")
			return
		}
		if err := r.users.UpdateAddress(ctx, userID, text); err != nil {
			r.log.Error().Err(err).Int64("user_id", userID).Msg("failed to update address")
			r.reply(ctx, userID, "Update failed, please try again.")
			return
		}
		_ = r.conversations.Clear(ctx, userID)
		r.reply(ctx, userID, "Payout address updated.")

	case StateAwaitingComment:
		_ = r.conversations.Clear(ctx, userID)
		if err := r.orchestrator.SubmitParticipation(ctx, userID, conv.ItemID, campaign.KindTask, text); err != nil {
			r.log.Debug().Err(err).Int64("user_id", userID).Int64("item_id", conv.ItemID).Msg("task participation rejected")
		}
	}
}

func (r *Router) reply(ctx context.Context, userID int64, text string) {
	if err := r.tg.SendMessage(ctx, userID, text); err != nil {
		r.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to send reply")
	}
}
