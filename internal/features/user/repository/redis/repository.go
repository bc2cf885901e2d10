package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"campaign-bot-backend/internal/features/user/models"
	"campaign-bot-backend/internal/features/user/repository"
)

const (
	keyPrefixUser = "user:"
	keyAllUsers   = "users"
)

type redisRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) repository.Repository {
	return &redisRepository{client: client}
}

func makeUserKey(id int64) string {
	return keyPrefixUser + strconv.FormatInt(id, 10)
}

func makeBalanceKey(id int64) string {
	return makeUserKey(id) + ":balance"
}

func (r *redisRepository) Create(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	ok, err := r.client.SetNX(ctx, makeUserKey(user.TelegramID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrUserAlreadyExists
	}

	return r.client.SAdd(ctx, keyAllUsers, user.TelegramID).Err()
}

func (r *redisRepository) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	data, err := r.client.Get(ctx, makeUserKey(telegramID)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *redisRepository) UpdateAddress(ctx context.Context, telegramID int64, address string) error {
	user, err := r.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	user.PayoutAddress = address

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return r.client.Set(ctx, makeUserKey(telegramID), data, 0).Err()
}

func (r *redisRepository) AllIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, keyAllUsers).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *redisRepository) Balance(ctx context.Context, telegramID int64) (int64, error) {
	v, err := r.client.Get(ctx, makeBalanceKey(telegramID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (r *redisRepository) Credit(ctx context.Context, telegramID int64, amount int64) error {
	return r.client.IncrBy(ctx, makeBalanceKey(telegramID), amount).Err()
}

func (r *redisRepository) WithdrawAll(ctx context.Context, telegramID int64) (int64, error) {
	v, err := r.client.GetDel(ctx, makeBalanceKey(telegramID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (r *redisRepository) Restore(ctx context.Context, telegramID int64, amount int64) error {
	return r.client.IncrBy(ctx, makeBalanceKey(telegramID), amount).Err()
}
