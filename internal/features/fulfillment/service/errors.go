package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrItemNotFound        = errors.New("item not found")
	ErrItemExpired         = errors.New("item expired")
	ErrAlreadyCompleted    = errors.New("item already completed by user")
	ErrGrantAlreadyPending = errors.New("authorization already pending for user")
	ErrGrantExpired        = errors.New("authorization grant expired")
	ErrGrantInvalid        = errors.New("authorization grant invalid")
	ErrCredentialInvalid   = errors.New("stored credential rejected by provider")
)

// RateLimitedError aborts an action sequence under the fail-fast
// policy, or after the block-and-retry bound is exhausted.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// PartialFailureError reports a fatal provider error on one step of
// the action sequence. Earlier steps are not undone; they are
// idempotent and will be skipped on a re-run.
type PartialFailureError struct {
	Step string
	Err  error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
