package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campaign-bot-backend/internal/common/logger"
	userrepo "campaign-bot-backend/internal/features/user/repository"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransferFailed      = errors.New("transfer failed")
)

// TransferClient moves a token amount from the custodial payout wallet
// to a destination address. Each call fails or succeeds atomically.
type TransferClient interface {
	Transfer(ctx context.Context, toAddress string, amount int64) (txHash string, err error)
}

// Receipt records a completed withdrawal.
type Receipt struct {
	ID      string
	UserID  int64
	Amount  int64
	Address string
	TxHash  string
	At      time.Time
}

// Processor converts a ledger balance into an on-chain transfer
// exactly once per request: reserve (atomic read-and-zero), spend,
// compensate on failure.
type Processor struct {
	users    userrepo.Repository
	transfer TransferClient
	log      zerolog.Logger
}

func NewProcessor(users userrepo.Repository, transfer TransferClient) *Processor {
	return &Processor{
		users:    users,
		transfer: transfer,
		log:      logger.With("withdrawal"),
	}
}

// Withdraw zeroes the user's balance and transfers the snapshot to the
// registered payout address. On transfer failure the snapshot is
// restored; the reservation is never a taken loss.
func (p *Processor) Withdraw(ctx context.Context, userID int64) (*Receipt, error) {
	user, err := p.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Zeroing before the external call is what stops a concurrent
	// second request from reading the same positive balance.
	amount, err := p.users.WithdrawAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInsufficientBalance
	}

	txHash, err := p.transfer.Transfer(ctx, user.PayoutAddress, amount)
	if err != nil {
		if rerr := p.users.Restore(ctx, userID, amount); rerr != nil {
			// Both the transfer and the compensation failed; the amount
			// is recorded here so an operator can restore it manually.
			p.log.Error().Err(rerr).Int64("user_id", userID).Int64("amount", amount).Msg("failed to restore balance after transfer failure")
		}
		p.log.Warn().Err(err).Int64("user_id", userID).Int64("amount", amount).Msg("transfer failed, balance restored")
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	receipt := &Receipt{
		ID:      uuid.New().String(),
		UserID:  userID,
		Amount:  amount,
		Address: user.PayoutAddress,
		TxHash:  txHash,
		At:      time.Now(),
	}
	p.log.Info().Int64("user_id", userID).Int64("amount", amount).Str("tx", txHash).Msg("withdrawal transferred")
	return receipt, nil
}
