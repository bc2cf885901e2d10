package models

import "time"

// Grant binds a user to a pending external-authorization round trip.
// It is single-use: consumed by the OAuth callback or discarded when
// its TTL elapses.
type Grant struct {
	Token     string    `json:"token"`
	Secret    string    `json:"secret"`
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the grant's logical lifetime has elapsed at
// the supplied instant.
func (g *Grant) Expired(now time.Time, ttl time.Duration) bool {
	return now.After(g.CreatedAt.Add(ttl))
}

// Credential is the long-lived access token pair obtained after a
// completed authorization handshake.
type Credential struct {
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}

// ResolvedGrant is what a consumed grant resolves to: the bound user,
// item and comment, plus the credential obtained from the provider.
type ResolvedGrant struct {
	UserID     int64
	ItemID     int64
	Comment    string
	Credential Credential
}

// CompletionRecord marks that a user has been credited for an item.
// Existence of the record is the sole idempotency fence against double
// crediting; records are created once and never touched again.
type CompletionRecord struct {
	UserID      int64     `json:"user_id"`
	ItemID      int64     `json:"item_id"`
	ItemKind    string    `json:"item_kind"`
	CompletedAt time.Time `json:"completed_at"`
}
