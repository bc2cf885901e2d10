package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campaign-bot-backend/internal/common/logger"
	campaign "campaign-bot-backend/internal/features/campaign/models"
	campaignrepo "campaign-bot-backend/internal/features/campaign/repository"
	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/features/fulfillment/repository"
	userrepo "campaign-bot-backend/internal/features/user/repository"
)

// Orchestrator sequences a participation attempt end to end: expiry
// check, completion check, authorization handshake, action execution,
// completion record, ledger credit. It is the only layer that turns
// engine errors into user-facing text.
type Orchestrator struct {
	items     campaignrepo.Repository
	users     userrepo.Repository
	store     repository.Repository
	handshake *Handshake
	executor  *Executor
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
}

func NewOrchestrator(
	items campaignrepo.Repository,
	users userrepo.Repository,
	store repository.Repository,
	handshake *Handshake,
	executor *Executor,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		items:     items,
		users:     users,
		store:     store,
		handshake: handshake,
		executor:  executor,
		notifier:  notifier,
		log:       logger.With("orchestrator"),
		now:       time.Now,
	}
}

// SubmitParticipation handles "user clicks participate on item".
// Airdrops are fulfilled immediately; tasks run the action sequence,
// starting an authorization handshake first when no credential is
// cached for the user.
func (o *Orchestrator) SubmitParticipation(ctx context.Context, userID, itemID int64, kind campaign.ItemKind, comment string) error {
	now := o.now()

	item, err := o.items.GetByID(ctx, kind, itemID)
	if err != nil {
		if errors.Is(err, campaignrepo.ErrItemNotFound) {
			o.notify(ctx, userID, "That campaign item no longer exists.")
			return ErrItemNotFound
		}
		return err
	}

	if item.Expired(now) {
		o.notify(ctx, userID, "This campaign item has expired.")
		return ErrItemExpired
	}

	done, err := o.store.HasCompleted(ctx, userID, item.ID, item.Kind)
	if err != nil {
		return err
	}
	if done {
		o.notify(ctx, userID, "You have already completed this item.")
		return ErrAlreadyCompleted
	}

	if item.Kind == campaign.KindAirdrop {
		return o.finish(ctx, userID, item)
	}

	cred, err := o.store.GetCredential(ctx, userID)
	if err != nil {
		return err
	}
	if cred != nil {
		return o.execute(ctx, userID, item, *cred, comment)
	}

	authURL, err := o.handshake.Begin(ctx, userID, item.ID, comment)
	if err != nil {
		if errors.Is(err, ErrGrantAlreadyPending) {
			o.notify(ctx, userID, "An authorization is already in progress. Finish it or wait a few minutes and try again.")
			return err
		}
		return err
	}

	o.notifyLink(ctx, userID,
		"Authorize access to your account to complete the task. The link is valid for a few minutes.",
		"Authorize", authURL)
	return nil
}

// ResolveAuthorizationCallback resumes a suspended task fulfillment
// when the external authorization callback arrives.
func (o *Orchestrator) ResolveAuthorizationCallback(ctx context.Context, token, verifier string) error {
	resolved, err := o.handshake.Complete(ctx, token, verifier)
	if err != nil {
		if errors.Is(err, ErrGrantExpired) && resolved != nil {
			o.notify(ctx, resolved.UserID, "The authorization took too long and expired. Open the task again to restart.")
		}
		return err
	}

	now := o.now()

	item, err := o.items.GetByID(ctx, campaign.KindTask, resolved.ItemID)
	if err != nil {
		if errors.Is(err, campaignrepo.ErrItemNotFound) {
			o.notify(ctx, resolved.UserID, "That campaign item no longer exists.")
			return ErrItemNotFound
		}
		return err
	}

	if item.Expired(now) {
		o.notify(ctx, resolved.UserID, "This task expired while you were authorizing.")
		return ErrItemExpired
	}

	done, err := o.store.HasCompleted(ctx, resolved.UserID, item.ID, item.Kind)
	if err != nil {
		return err
	}
	if done {
		o.notify(ctx, resolved.UserID, "You have already completed this task.")
		return ErrAlreadyCompleted
	}

	return o.execute(ctx, resolved.UserID, item, resolved.Credential, resolved.Comment)
}

// execute runs the action sequence and, only on success, records
// completion and credits the reward. Ordering is deliberate: act, then
// mark, then credit - a crash after acting costs at most a harmless
// re-run of idempotent actions, never a lost reward.
func (o *Orchestrator) execute(ctx context.Context, userID int64, item *campaign.Item, cred models.Credential, comment string) error {
	err := o.executor.Run(ctx, cred, item.TweetID, comment)
	if err == nil {
		return o.finish(ctx, userID, item)
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		wait := time.Until(rl.ResetAt).Round(time.Minute)
		if wait < time.Minute {
			wait = time.Minute
		}
		o.notify(ctx, userID, fmt.Sprintf("The provider is rate limiting us. Try the task again in about %s.", wait))
		return err
	}

	if errors.Is(err, ErrCredentialInvalid) {
		if derr := o.store.DeleteCredential(ctx, userID); derr != nil {
			o.log.Error().Err(derr).Int64("user_id", userID).Msg("failed to purge rejected credential")
		}
		o.notify(ctx, userID, "Your account authorization is no longer valid. Open the task again to re-authorize.")
		return err
	}

	var pf *PartialFailureError
	if errors.As(err, &pf) {
		o.log.Warn().Err(pf.Err).Str("step", pf.Step).Int64("user_id", userID).Int64("item_id", item.ID).Msg("action sequence failed")
		o.notify(ctx, userID, "Something went wrong performing the task actions. Please try again later.")
		return err
	}

	return err
}

// finish records completion and credits the reward. Credit happens if
// and only if the completion record was inserted; losing the insert
// race means another attempt already owns the credit.
func (o *Orchestrator) finish(ctx context.Context, userID int64, item *campaign.Item) error {
	err := o.store.MarkCompleted(ctx, userID, item.ID, item.Kind, o.now())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			o.log.Debug().Int64("user_id", userID).Int64("item_id", item.ID).Msg("lost completion race, skipping credit")
			return nil
		}
		return err
	}

	if err := o.users.Credit(ctx, userID, item.RewardAmount); err != nil {
		// The completion record exists but the credit failed; surface
		// loudly, this needs operator attention.
		o.log.Error().Err(err).Int64("user_id", userID).Int64("item_id", item.ID).Int64("amount", item.RewardAmount).Msg("credit after completion failed")
		return err
	}

	o.notify(ctx, userID, fmt.Sprintf("Done! %d tokens have been credited to your balance.", item.RewardAmount))
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, userID int64, text string) {
	if err := o.notifier.Notify(ctx, userID, text); err != nil {
		o.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to notify user")
	}
}

func (o *Orchestrator) notifyLink(ctx context.Context, userID int64, text, label, url string) {
	if err := o.notifier.NotifyWithLink(ctx, userID, text, label, url); err != nil {
		o.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to notify user")
	}
}
