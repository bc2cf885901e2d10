package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemExpired(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &Item{
		Kind:      KindTask,
		CreatedAt: created,
		ExpiresAt: created.Add(60 * time.Minute),
	}

	assert.False(t, item.Expired(created))
	assert.False(t, item.Expired(created.Add(60*time.Minute)))
	assert.True(t, item.Expired(created.Add(60*time.Minute+time.Second)))
}

func TestItemExpiryIsMonotonic(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &Item{Kind: KindAirdrop, CreatedAt: created, ExpiresAt: created.Add(time.Hour)}

	t1 := created.Add(time.Hour + time.Minute)
	require.True(t, item.Expired(t1))

	for _, later := range []time.Time{t1.Add(time.Second), t1.Add(time.Hour), t1.Add(24 * time.Hour)} {
		assert.True(t, item.Expired(later), "expired at %s must stay expired at %s", t1, later)
	}
}

func TestTweetIDFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"twitter.com", "https://twitter.com/someone/status/1856722908967583890", "1856722908967583890", false},
		{"x.com", "https://x.com/someone/status/123456", "123456", false},
		{"with query", "https://twitter.com/someone/status/987?s=20", "987", false},
		{"statuses path", "https://twitter.com/i/statuses/42", "42", false},
		{"no status segment", "https://twitter.com/someone", "", true},
		{"trailing status", "https://twitter.com/someone/status/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TweetIDFromURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
