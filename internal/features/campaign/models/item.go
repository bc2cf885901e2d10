package models

import "time"

// ItemKind tags the two campaign item variants.
type ItemKind string

const (
	KindTask    ItemKind = "task"
	KindAirdrop ItemKind = "airdrop"
)

func (k ItemKind) Valid() bool {
	return k == KindTask || k == KindAirdrop
}

// Item is a reward-bearing campaign entry. Tasks additionally carry
// the target tweet the user has to interact with; airdrops are claimed
// directly. Items are immutable after creation.
type Item struct {
	ID           int64     `json:"id"`
	Kind         ItemKind  `json:"kind"`
	RewardAmount int64     `json:"reward_amount"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	// Task only.
	PostURL string `json:"post_url,omitempty"`
	TweetID string `json:"tweet_id,omitempty"`
}

// Expired reports whether the item is past its expiration at the
// supplied instant. The caller provides now so that all expiry checks
// within one fulfillment observe a single consistent instant.
func (i *Item) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
