package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"campaign-bot-backend/internal/common/logger"
	campaign "campaign-bot-backend/internal/features/campaign/models"
	campaignrepo "campaign-bot-backend/internal/features/campaign/repository"
	userrepo "campaign-bot-backend/internal/features/user/repository"
	"campaign-bot-backend/internal/platform/telegram"
)

// Sender is the outbound surface the worker needs from the chat
// transport.
type Sender interface {
	SendMessageWithButtons(ctx context.Context, chatID int64, text string, rows [][]telegram.InlineButton) error
}

// Handler fans an announcement out to all users, throttled to the
// configured outbound ceiling. A per-user send failure is logged and
// skipped; it never aborts the broadcast.
type Handler struct {
	items   campaignrepo.Repository
	users   userrepo.Repository
	sender  Sender
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewHandler(items campaignrepo.Repository, users userrepo.Repository, sender Sender, messagesPerSecond float64) *Handler {
	return &Handler{
		items:   items,
		users:   users,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
		log:     logger.With("broadcast"),
	}
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p announcePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal announce payload: %v: %w", err, asynq.SkipRetry)
	}

	item, err := h.items.GetByID(ctx, p.Kind, p.ItemID)
	if err != nil {
		return fmt.Errorf("load item %s/%d: %w", p.Kind, p.ItemID, err)
	}

	ids, err := h.users.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	text, rows := announcement(item)

	sent := 0
	for _, userID := range ids {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := h.sender.SendMessageWithButtons(ctx, userID, text, rows); err != nil {
			h.log.Warn().Err(err).Int64("user_id", userID).Int64("item_id", item.ID).Msg("announcement send failed, skipping user")
			continue
		}
		sent++
	}

	h.log.Info().Int64("item_id", item.ID).Str("kind", string(item.Kind)).Int("sent", sent).Int("total", len(ids)).Msg("announcement broadcast finished")
	return nil
}

func announcement(item *campaign.Item) (string, [][]telegram.InlineButton) {
	var text string
	switch item.Kind {
	case campaign.KindTask:
		text = fmt.Sprintf("New task! Interact with %s and earn %d tokens. Expires %s.",
			item.PostURL, item.RewardAmount, item.ExpiresAt.Format("Jan 2 15:04 MST"))
	default:
		text = fmt.Sprintf("New airdrop! Claim %d tokens before %s.",
			item.RewardAmount, item.ExpiresAt.Format("Jan 2 15:04 MST"))
	}

	button := telegram.InlineButton{
		Text:         "Participate",
		CallbackData: fmt.Sprintf("%s:%d", item.Kind, item.ID),
	}
	return text, [][]telegram.InlineButton{{button}}
}
