package repository

import (
	"context"
	"errors"
	"time"

	campaign "campaign-bot-backend/internal/features/campaign/models"
	"campaign-bot-backend/internal/features/fulfillment/models"
)

var (
	// ErrAlreadyCompleted is returned by MarkCompleted when a record
	// for the (user, item) pair already exists.
	ErrAlreadyCompleted = errors.New("completion already recorded")

	// ErrGrantPending is returned by CreateGrant when the user already
	// has an unexpired grant outstanding.
	ErrGrantPending = errors.New("authorization grant already pending")

	// ErrGrantNotFound is returned by ClaimGrant for unknown or already
	// consumed tokens.
	ErrGrantNotFound = errors.New("authorization grant not found")
)

// Repository owns the engine's true state: completion records and
// authorization grants, plus the per-user credential cache.
type Repository interface {
	// MarkCompleted records completion as a single atomic insert-if-absent
	// against the (user, item, kind) key. This is the sole guard against
	// double crediting; a duplicate insert fails with ErrAlreadyCompleted.
	MarkCompleted(ctx context.Context, userID, itemID int64, kind campaign.ItemKind, at time.Time) error
	HasCompleted(ctx context.Context, userID, itemID int64, kind campaign.ItemKind) (bool, error)

	// CreateGrant persists a pending grant. At most one grant may be
	// outstanding per user; ttl bounds both the pending marker and the
	// grant record's store lifetime.
	CreateGrant(ctx context.Context, grant *models.Grant, ttl time.Duration) error
	// ClaimGrant atomically removes and returns the grant, so a token
	// can be consumed at most once.
	ClaimGrant(ctx context.Context, token string) (*models.Grant, error)

	SetCredential(ctx context.Context, userID int64, cred models.Credential) error
	// GetCredential returns (nil, nil) when no credential is cached.
	GetCredential(ctx context.Context, userID int64) (*models.Credential, error)
	DeleteCredential(ctx context.Context, userID int64) error
}
