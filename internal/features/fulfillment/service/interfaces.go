package service

import (
	"context"

	"campaign-bot-backend/internal/features/fulfillment/models"
)

// SocialClient is the provider-facing surface the engine needs: the
// OAuth handshake plus the three paid actions. Implemented by
// platform/twitter.
type SocialClient interface {
	RequestAuthorization(ctx context.Context) (token, secret, authURL string, err error)
	ExchangeVerifier(ctx context.Context, token, secret, verifier string) (models.Credential, error)
	Like(ctx context.Context, cred models.Credential, tweetID string) error
	Reshare(ctx context.Context, cred models.Credential, tweetID string) error
	Reply(ctx context.Context, cred models.Credential, tweetID, text string) error
}

// Notifier delivers user-facing text. Implemented by the bot layer on
// top of the Telegram client.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
	NotifyWithLink(ctx context.Context, userID int64, text, linkLabel, url string) error
}
