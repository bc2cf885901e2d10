package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campaign "campaign-bot-backend/internal/features/campaign/models"
	campaignredis "campaign-bot-backend/internal/features/campaign/repository/redis"
	usermodels "campaign-bot-backend/internal/features/user/models"
	userredis "campaign-bot-backend/internal/features/user/repository/redis"
	"campaign-bot-backend/internal/platform/telegram"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []int64
	failID int64
}

func (f *fakeSender) SendMessageWithButtons(ctx context.Context, chatID int64, text string, rows [][]telegram.InlineButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chatID == f.failID {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func TestProcessTaskBroadcastsToAllUsers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := userredis.NewUserRepository(client)
	items := campaignredis.NewItemRepository(client)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, users.Create(ctx, &usermodels.User{TelegramID: id}))
	}

	now := time.Now().UTC()
	item := &campaign.Item{Kind: campaign.KindAirdrop, RewardAmount: 10, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, items.Create(ctx, item))

	// User 2 has blocked the bot; the broadcast must not abort on it.
	sender := &fakeSender{failID: 2}
	h := NewHandler(items, users, sender, 1000)

	payload, err := json.Marshal(announcePayload{Kind: item.Kind, ItemID: item.ID})
	require.NoError(t, err)

	err = h.ProcessTask(ctx, asynq.NewTask(TypeAnnounceItem, payload))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, sender.sent)
}

func TestProcessTaskBadPayloadIsNotRetried(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHandler(campaignredis.NewItemRepository(client), userredis.NewUserRepository(client), &fakeSender{}, 1000)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeAnnounceItem, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAnnouncementContent(t *testing.T) {
	now := time.Now()
	task := &campaign.Item{ID: 4, Kind: campaign.KindTask, RewardAmount: 100, PostURL: "https://twitter.com/a/status/5", ExpiresAt: now}
	text, rows := announcement(task)
	assert.Contains(t, text, "https://twitter.com/a/status/5")
	require.Len(t, rows, 1)
	assert.Equal(t, "task:4", rows[0][0].CallbackData)

	airdrop := &campaign.Item{ID: 9, Kind: campaign.KindAirdrop, RewardAmount: 25, ExpiresAt: now}
	text, rows = announcement(airdrop)
	assert.Contains(t, text, "airdrop")
	assert.Equal(t, "airdrop:9", rows[0][0].CallbackData)
}
