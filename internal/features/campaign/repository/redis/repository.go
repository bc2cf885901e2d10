package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"campaign-bot-backend/internal/features/campaign/models"
	"campaign-bot-backend/internal/features/campaign/repository"
)

const keyPrefixItem = "item:"

type redisRepository struct {
	client *redis.Client
}

func NewItemRepository(client *redis.Client) repository.Repository {
	return &redisRepository{client: client}
}

func makeItemKey(kind models.ItemKind, id int64) string {
	return keyPrefixItem + string(kind) + ":" + strconv.FormatInt(id, 10)
}

func makeKindSetKey(kind models.ItemKind) string {
	return "items:" + string(kind)
}

func makeCounterKey(kind models.ItemKind) string {
	return "items:" + string(kind) + ":next_id"
}

func (r *redisRepository) Create(ctx context.Context, item *models.Item) error {
	id, err := r.client.Incr(ctx, makeCounterKey(item.Kind)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate item id: %w", err)
	}
	item.ID = id

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeItemKey(item.Kind, item.ID), data, 0)
	pipe.SAdd(ctx, makeKindSetKey(item.Kind), item.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, kind models.ItemKind, id int64) (*models.Item, error) {
	data, err := r.client.Get(ctx, makeItemKey(kind, id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *redisRepository) List(ctx context.Context, kind models.ItemKind) ([]*models.Item, error) {
	members, err := r.client.SMembers(ctx, makeKindSetKey(kind)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]*models.Item, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		item, err := r.GetByID(ctx, kind, id)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
