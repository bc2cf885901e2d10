package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	campaign "campaign-bot-backend/internal/features/campaign/models"
	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/features/fulfillment/repository"
)

const (
	keyPrefixCompleted  = "completed:"
	keyPrefixGrant      = "grant:"
	keyPrefixGrantUser  = "grant:user:"
	keyPrefixCredential = "credential:"

	// Grant records outlive their logical TTL by this grace period so a
	// late callback can be answered with "expired" rather than
	// "invalid".
	grantGracePeriod = time.Hour
)

type redisRepository struct {
	client *redis.Client
}

func NewFulfillmentRepository(client *redis.Client) repository.Repository {
	return &redisRepository{client: client}
}

func makeCompletedKey(userID, itemID int64, kind campaign.ItemKind) string {
	return fmt.Sprintf("%s%s:%d:%d", keyPrefixCompleted, kind, itemID, userID)
}

func makeGrantKey(token string) string {
	return keyPrefixGrant + token
}

func makeGrantUserKey(userID int64) string {
	return keyPrefixGrantUser + strconv.FormatInt(userID, 10)
}

func makeCredentialKey(userID int64) string {
	return keyPrefixCredential + strconv.FormatInt(userID, 10)
}

func (r *redisRepository) MarkCompleted(ctx context.Context, userID, itemID int64, kind campaign.ItemKind, at time.Time) error {
	ok, err := r.client.SetNX(ctx, makeCompletedKey(userID, itemID, kind), at.UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrAlreadyCompleted
	}
	return nil
}

func (r *redisRepository) HasCompleted(ctx context.Context, userID, itemID int64, kind campaign.ItemKind) (bool, error) {
	n, err := r.client.Exists(ctx, makeCompletedKey(userID, itemID, kind)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisRepository) CreateGrant(ctx context.Context, grant *models.Grant, ttl time.Duration) error {
	// The pending marker expires exactly at the logical TTL, which is
	// what allows a fresh Begin once the old grant has gone stale.
	ok, err := r.client.SetNX(ctx, makeGrantUserKey(grant.UserID), grant.Token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrGrantPending
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}
	return r.client.Set(ctx, makeGrantKey(grant.Token), data, ttl+grantGracePeriod).Err()
}

func (r *redisRepository) ClaimGrant(ctx context.Context, token string) (*models.Grant, error) {
	data, err := r.client.GetDel(ctx, makeGrantKey(token)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrGrantNotFound
	}
	if err != nil {
		return nil, err
	}

	var grant models.Grant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, err
	}

	// Clear the pending marker, but only if it still belongs to this
	// grant; a stale claim must not knock out a newer pending grant.
	userKey := makeGrantUserKey(grant.UserID)
	if current, err := r.client.Get(ctx, userKey).Result(); err == nil && current == token {
		_ = r.client.Del(ctx, userKey).Err()
	}

	return &grant, nil
}

func (r *redisRepository) SetCredential(ctx context.Context, userID int64, cred models.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return r.client.Set(ctx, makeCredentialKey(userID), data, 0).Err()
}

func (r *redisRepository) GetCredential(ctx context.Context, userID int64) (*models.Credential, error) {
	data, err := r.client.Get(ctx, makeCredentialKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *redisRepository) DeleteCredential(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, makeCredentialKey(userID)).Err()
}
