package twitter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyPerformed is returned when the API reports the action
	// was already done by this identity (already liked, already
	// retweeted, duplicate reply). Callers treat it as success.
	ErrAlreadyPerformed = errors.New("twitter: action already performed")

	// ErrCredentialRejected is returned when the stored access token is
	// expired or revoked; the caller must force re-authorization.
	ErrCredentialRejected = errors.New("twitter: credential rejected")
)

// RateLimitError carries the instant at which the provider's rate
// limit window resets.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("twitter: rate limited until %s", e.ResetAt.Format(time.RFC3339))
}
