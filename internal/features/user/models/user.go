package models

import "time"

// User is a registered participant. Balance is kept in a separate
// store key so credits and debits stay atomic; it is not part of this
// blob.
type User struct {
	TelegramID    int64     `json:"telegram_id"`
	PayoutAddress string    `json:"payout_address"`
	CreatedAt     time.Time `json:"created_at"`
}
