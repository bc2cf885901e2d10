package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/platform/twitter"
)

var testCred = models.Credential{AccessToken: "at", AccessSecret: "as"}

func TestRunHappyPath(t *testing.T) {
	social := newFakeSocial()
	e := NewExecutor(social, PolicyFailFast, 10*time.Minute)

	err := e.Run(context.Background(), testCred, "123", "nice post")
	require.NoError(t, err)
	assert.Equal(t, 1, social.callCount("like"))
	assert.Equal(t, 1, social.callCount("reshare"))
	assert.Equal(t, 1, social.callCount("reply"))
	assert.Equal(t, "nice post", social.lastReplyText)
}

func TestRunTreatsAlreadyPerformedAsSuccess(t *testing.T) {
	// Re-run after a crash that landed between like and reshare: the
	// provider reports the like as already done and the sequence
	// continues.
	social := newFakeSocial()
	social.fail("like", twitter.ErrAlreadyPerformed)

	e := NewExecutor(social, PolicyFailFast, 10*time.Minute)
	err := e.Run(context.Background(), testCred, "123", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, social.callCount("reshare"))
	assert.Equal(t, 1, social.callCount("reply"))
}

func TestRunFailFastOnRateLimit(t *testing.T) {
	resetAt := time.Now().Add(12 * time.Minute)
	social := newFakeSocial()
	social.fail("reshare", &twitter.RateLimitError{ResetAt: resetAt})

	e := NewExecutor(social, PolicyFailFast, 10*time.Minute)
	err := e.Run(context.Background(), testCred, "123", "c")

	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.True(t, rl.ResetAt.Equal(resetAt))
	assert.Equal(t, 1, social.callCount("like"), "earlier step already ran")
	assert.Zero(t, social.callCount("reply"), "sequence aborted")
}

func TestRunBlockAndRetryWaitsForReset(t *testing.T) {
	resetAt := time.Now().Add(time.Minute)
	social := newFakeSocial()
	social.fail("reshare", &twitter.RateLimitError{ResetAt: resetAt})

	e := NewExecutor(social, PolicyBlockAndRetry, 10*time.Minute)
	var waited []time.Time
	e.wait = func(ctx context.Context, until time.Time) error {
		waited = append(waited, until)
		return nil
	}

	err := e.Run(context.Background(), testCred, "123", "c")
	require.NoError(t, err)
	require.Len(t, waited, 1)
	assert.True(t, waited[0].Equal(resetAt))
	assert.Equal(t, 2, social.callCount("reshare"), "step retried after the wait")
	assert.Equal(t, 1, social.callCount("reply"))
}

func TestRunBlockAndRetryGivesUpBeyondBound(t *testing.T) {
	// Reset lies past the overall bound: surface the rate limit rather
	// than holding a worker for that long.
	resetAt := time.Now().Add(time.Hour)
	social := newFakeSocial()
	social.fail("like", &twitter.RateLimitError{ResetAt: resetAt})

	e := NewExecutor(social, PolicyBlockAndRetry, 10*time.Minute)
	e.wait = func(ctx context.Context, until time.Time) error {
		t.Fatal("must not wait past the bound")
		return nil
	}

	err := e.Run(context.Background(), testCred, "123", "c")
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.True(t, rl.ResetAt.Equal(resetAt))
}

func TestRunCredentialRejected(t *testing.T) {
	social := newFakeSocial()
	social.fail("like", twitter.ErrCredentialRejected)

	e := NewExecutor(social, PolicyFailFast, 10*time.Minute)
	err := e.Run(context.Background(), testCred, "123", "c")
	assert.ErrorIs(t, err, ErrCredentialInvalid)
}

func TestRunFatalErrorIsPartialFailure(t *testing.T) {
	social := newFakeSocial()
	social.fail("reply", errors.New("boom"))

	e := NewExecutor(social, PolicyFailFast, 10*time.Minute)
	err := e.Run(context.Background(), testCred, "123", "c")

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "reply", pf.Step)
	// Completed steps are not undone.
	assert.Equal(t, 1, social.callCount("like"))
	assert.Equal(t, 1, social.callCount("reshare"))
}

func TestParseRateLimitPolicy(t *testing.T) {
	p, err := ParseRateLimitPolicy("fail_fast")
	require.NoError(t, err)
	assert.Equal(t, PolicyFailFast, p)

	p, err = ParseRateLimitPolicy("block_and_retry")
	require.NoError(t, err)
	assert.Equal(t, PolicyBlockAndRetry, p)

	_, err = ParseRateLimitPolicy("whatever")
	assert.Error(t, err)
}
