package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	campaign "campaign-bot-backend/internal/features/campaign/models"
)

// TypeAnnounceItem is the queue task announcing a freshly published
// campaign item to every registered user.
const TypeAnnounceItem = "broadcast:announce_item"

type announcePayload struct {
	Kind   campaign.ItemKind `json:"kind"`
	ItemID int64             `json:"item_id"`
}

// Publisher enqueues announcement jobs; the actual fan-out happens in
// the worker so the admin command returns immediately.
type Publisher struct {
	client *asynq.Client
}

func NewPublisher(client *asynq.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Announce(ctx context.Context, kind campaign.ItemKind, itemID int64) error {
	payload, err := json.Marshal(announcePayload{Kind: kind, ItemID: itemID})
	if err != nil {
		return fmt.Errorf("marshal announce payload: %w", err)
	}

	task := asynq.NewTask(TypeAnnounceItem, payload)
	_, err = p.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute))
	if err != nil {
		return fmt.Errorf("enqueue announce: %w", err)
	}
	return nil
}
