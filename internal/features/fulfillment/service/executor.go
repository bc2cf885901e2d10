package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-bot-backend/internal/features/fulfillment/models"
	"campaign-bot-backend/internal/platform/twitter"
)

// RateLimitPolicy selects how the executor reacts to a provider rate
// limit: give up immediately or wait for the reset and retry.
type RateLimitPolicy string

const (
	PolicyFailFast      RateLimitPolicy = "fail_fast"
	PolicyBlockAndRetry RateLimitPolicy = "block_and_retry"
)

func ParseRateLimitPolicy(s string) (RateLimitPolicy, error) {
	switch RateLimitPolicy(s) {
	case PolicyFailFast, PolicyBlockAndRetry:
		return RateLimitPolicy(s), nil
	}
	return "", fmt.Errorf("unknown rate limit policy %q", s)
}

// Executor runs the paid action sequence like -> reshare -> reply in
// fixed order. Steps the provider reports as already performed count
// as success, which makes the whole sequence safely re-runnable after
// a crash between steps.
type Executor struct {
	social  SocialClient
	policy  RateLimitPolicy
	maxWait time.Duration
	wait    func(ctx context.Context, until time.Time) error
}

// NewExecutor builds an executor. maxWait bounds the total time
// block-and-retry may spend waiting for rate limit resets; once a
// reset lies beyond the bound the executor gives up with
// RateLimitedError instead of holding the worker.
func NewExecutor(social SocialClient, policy RateLimitPolicy, maxWait time.Duration) *Executor {
	return &Executor{
		social:  social,
		policy:  policy,
		maxWait: maxWait,
		wait:    sleepUntil,
	}
}

func sleepUntil(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes the sequence against the target tweet. Completed steps
// are never undone on a later failure.
func (e *Executor) Run(ctx context.Context, cred models.Credential, tweetID, comment string) error {
	deadline := time.Now().Add(e.maxWait)

	steps := []struct {
		name string
		do   func() error
	}{
		{"like", func() error { return e.social.Like(ctx, cred, tweetID) }},
		{"reshare", func() error { return e.social.Reshare(ctx, cred, tweetID) }},
		{"reply", func() error { return e.social.Reply(ctx, cred, tweetID, comment) }},
	}

	for _, step := range steps {
		if err := e.runStep(ctx, deadline, step.name, step.do); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, deadline time.Time, name string, do func() error) error {
	for {
		err := do()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, twitter.ErrAlreadyPerformed):
			// Idempotent success; lets a re-run skip past steps that
			// landed before a crash.
			return nil
		case errors.Is(err, twitter.ErrCredentialRejected):
			return ErrCredentialInvalid
		}

		var rl *twitter.RateLimitError
		if !errors.As(err, &rl) {
			return &PartialFailureError{Step: name, Err: err}
		}

		if e.policy == PolicyFailFast || rl.ResetAt.After(deadline) {
			return &RateLimitedError{ResetAt: rl.ResetAt}
		}
		if err := e.wait(ctx, rl.ResetAt); err != nil {
			return &RateLimitedError{ResetAt: rl.ResetAt}
		}
	}
}
