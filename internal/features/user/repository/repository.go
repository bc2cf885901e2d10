package repository

import (
	"context"
	"errors"

	"campaign-bot-backend/internal/features/user/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// Repository stores users and their ledger balances. Balance
// operations must be atomic at the store: Credit/Restore are atomic
// increments and WithdrawAll is an atomic read-and-zero, so concurrent
// credits and a concurrent second withdrawal can never observe or
// produce a stale balance.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateAddress(ctx context.Context, telegramID int64, address string) error
	AllIDs(ctx context.Context) ([]int64, error)

	Balance(ctx context.Context, telegramID int64) (int64, error)
	Credit(ctx context.Context, telegramID int64, amount int64) error
	// WithdrawAll atomically zeroes the balance and returns the amount
	// that was held.
	WithdrawAll(ctx context.Context, telegramID int64) (int64, error)
	// Restore puts a reserved amount back after a failed transfer.
	Restore(ctx context.Context, telegramID int64, amount int64) error
}
