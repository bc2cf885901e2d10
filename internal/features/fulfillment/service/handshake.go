package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/features/fulfillment/repository"
)

// Handshake manages the short-lived, single-use grant that binds a
// user to a pending external-authorization round trip. The provider's
// request token doubles as the grant token, since the callback
// identifies the round trip by it.
type Handshake struct {
	repo   repository.Repository
	social SocialClient
	ttl    time.Duration
	now    func() time.Time
}

func NewHandshake(repo repository.Repository, social SocialClient, ttl time.Duration) *Handshake {
	return &Handshake{
		repo:   repo,
		social: social,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Begin starts a round trip for the user and returns the URL the user
// has to visit. At most one grant may be outstanding per user; a
// second Begin while one is pending fails with ErrGrantAlreadyPending.
func (h *Handshake) Begin(ctx context.Context, userID, itemID int64, comment string) (string, error) {
	token, secret, authURL, err := h.social.RequestAuthorization(ctx)
	if err != nil {
		return "", fmt.Errorf("request authorization: %w", err)
	}

	grant := &models.Grant{
		Token:     token,
		Secret:    secret,
		UserID:    userID,
		ItemID:    itemID,
		Comment:   comment,
		CreatedAt: h.now(),
	}

	if err := h.repo.CreateGrant(ctx, grant, h.ttl); err != nil {
		if errors.Is(err, repository.ErrGrantPending) {
			return "", ErrGrantAlreadyPending
		}
		return "", err
	}
	return authURL, nil
}

// Complete consumes the grant and exchanges the verifier for the
// long-lived credential, caching it for the user. A token can be
// completed at most once; a second call finds no record and fails with
// ErrGrantInvalid. On ErrGrantExpired the returned ResolvedGrant still
// carries the bound user and item so the caller can tell the user to
// restart, but no credential.
func (h *Handshake) Complete(ctx context.Context, token, verifier string) (*models.ResolvedGrant, error) {
	grant, err := h.repo.ClaimGrant(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return nil, ErrGrantInvalid
		}
		return nil, err
	}

	resolved := &models.ResolvedGrant{
		UserID:  grant.UserID,
		ItemID:  grant.ItemID,
		Comment: grant.Comment,
	}

	if grant.Expired(h.now(), h.ttl) {
		return resolved, ErrGrantExpired
	}

	cred, err := h.social.ExchangeVerifier(ctx, grant.Token, grant.Secret, verifier)
	if err != nil {
		return nil, fmt.Errorf("verifier exchange: %w", err)
	}

	if err := h.repo.SetCredential(ctx, grant.UserID, cred); err != nil {
		return nil, fmt.Errorf("cache credential: %w", err)
	}

	resolved.Credential = cred
	return resolved, nil
}
