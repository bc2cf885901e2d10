package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campaign "campaign-bot-backend/internal/features/campaign/models"
	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/features/fulfillment/repository"
)

func newTestRepo(t *testing.T) (repository.Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFulfillmentRepository(client), mr
}

func TestMarkCompletedIsExactlyOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	done, err := repo.HasCompleted(ctx, 1, 10, campaign.KindTask)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, repo.MarkCompleted(ctx, 1, 10, campaign.KindTask, time.Now()))

	err = repo.MarkCompleted(ctx, 1, 10, campaign.KindTask, time.Now())
	assert.ErrorIs(t, err, repository.ErrAlreadyCompleted)

	done, err = repo.HasCompleted(ctx, 1, 10, campaign.KindTask)
	require.NoError(t, err)
	assert.True(t, done)

	// Same item id under the other kind is a separate completion.
	require.NoError(t, repo.MarkCompleted(ctx, 1, 10, campaign.KindAirdrop, time.Now()))
}

func TestMarkCompletedConcurrent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.MarkCompleted(ctx, 5, 7, campaign.KindTask, time.Now())
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, repository.ErrAlreadyCompleted)
			duplicates++
		}
	}
	assert.Equal(t, 1, successes, "exactly one attempt may win")
	assert.Equal(t, attempts-1, duplicates)
}

func TestGrantSingleUse(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	grant := &models.Grant{Token: "tok", Secret: "sec", UserID: 1, ItemID: 2, Comment: "hi", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, grant, 10*time.Minute))

	got, err := repo.ClaimGrant(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, int64(2), got.ItemID)
	assert.Equal(t, "hi", got.Comment)

	_, err = repo.ClaimGrant(ctx, "tok")
	assert.ErrorIs(t, err, repository.ErrGrantNotFound, "a claimed grant is gone")
}

func TestOnePendingGrantPerUser(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	first := &models.Grant{Token: "tok-1", Secret: "s", UserID: 1, ItemID: 2, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, first, 10*time.Minute))

	second := &models.Grant{Token: "tok-2", Secret: "s", UserID: 1, ItemID: 3, CreatedAt: time.Now()}
	err := repo.CreateGrant(ctx, second, 10*time.Minute)
	assert.ErrorIs(t, err, repository.ErrGrantPending)

	// Another user is unaffected.
	other := &models.Grant{Token: "tok-3", Secret: "s", UserID: 9, ItemID: 2, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, other, 10*time.Minute))

	// Once the pending marker expires a fresh grant is allowed.
	mr.FastForward(11 * time.Minute)
	require.NoError(t, repo.CreateGrant(ctx, second, 10*time.Minute))
}

func TestClaimAfterConsumeAllowsNewGrant(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	grant := &models.Grant{Token: "tok-1", Secret: "s", UserID: 1, ItemID: 2, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, grant, 10*time.Minute))

	_, err := repo.ClaimGrant(ctx, "tok-1")
	require.NoError(t, err)

	// Consuming the grant clears the pending marker immediately.
	next := &models.Grant{Token: "tok-2", Secret: "s", UserID: 1, ItemID: 2, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, next, 10*time.Minute))
}

func TestStaleGrantStillClaimableWithinGrace(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	grant := &models.Grant{Token: "tok", Secret: "s", UserID: 1, ItemID: 2, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGrant(ctx, grant, 10*time.Minute))

	// Past the logical TTL but inside the grace window the record is
	// still there, so the handshake can answer "expired" instead of
	// "invalid".
	mr.FastForward(11 * time.Minute)
	got, err := repo.ClaimGrant(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
}

func TestCredentialCache(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cred, err := repo.GetCredential(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, repo.SetCredential(ctx, 1, models.Credential{AccessToken: "at", AccessSecret: "as"}))

	cred, err = repo.GetCredential(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "at", cred.AccessToken)

	require.NoError(t, repo.DeleteCredential(ctx, 1))
	cred, err = repo.GetCredential(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cred)
}
