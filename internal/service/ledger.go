package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/digkill/vidcrafter/internal/repository"
)

// Ledger owns a user's redeemable generation balance.
type Ledger struct {
	users *repository.UserRepository
}

func NewLedger(users *repository.UserRepository) *Ledger {
	return &Ledger{users: users}
}

func (l *Ledger) GetBalance(ctx context.Context, userID string) (int, error) {
	balance, found, err := l.users.Balance(ctx, l.users.DB(), userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrUserNotFound
	}
	return balance, nil
}

// Credit adds amount to the user's balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int
	err := repository.WithTx(ctx, l.users.DB(), func(tx *sqlx.Tx) error {
		var err error
		balance, err = l.creditTx(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// creditTx applies the credit inside the caller's transaction.
func (l *Ledger) creditTx(ctx context.Context, tx *sqlx.Tx, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	found, err := l.users.AddCredits(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrUserNotFound
	}
	balance, _, err := l.users.Balance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return balance, nil
}
