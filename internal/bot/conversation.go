package bot

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversationState names the step a multi-message exchange with a
// user is waiting on.
type ConversationState string

const (
	StateAwaitingAddress    ConversationState = "awaiting_address"
	StateAwaitingNewAddress ConversationState = "awaiting_new_address"
	StateAwaitingComment    ConversationState = "awaiting_comment"
)

// Conversation is the persisted per-user wizard state. Keeping it in
// the store (with a TTL) instead of process memory means any instance
// can continue the exchange and abandoned wizards clean themselves up.
type Conversation struct {
	State  ConversationState `json:"state"`
	ItemID int64             `json:"item_id,omitempty"`
}

type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewConversationStore(client *redis.Client, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, ttl: ttl}
}

func makeConversationKey(userID int64) string {
	return "conversation:" + strconv.FormatInt(userID, 10)
}

// Get returns (nil, nil) when the user has no active conversation.
func (s *ConversationStore) Get(ctx context.Context, userID int64) (*Conversation, error) {
	data, err := s.client.Get(ctx, makeConversationKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) Set(ctx context.Context, userID int64, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, makeConversationKey(userID), data, s.ttl).Err()
}

func (s *ConversationStore) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, makeConversationKey(userID)).Err()
}
