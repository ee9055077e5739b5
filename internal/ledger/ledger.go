// Package ledger owns the durable token balance. Balances only grow, and
// every mutation is an atomic additive update at the storage boundary.
package ledger

import (
	"context"
	"errors"

	"github.com/git-lord1/Mineb/internal/db"
)

var (
	// ErrUnknownUser indicates a credit against a nonexistent account.
	// With authenticated callers this signals a broken invariant.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidAmount rejects non-positive credits. No debit exists.
	ErrInvalidAmount = errors.New("credit amount must be positive")
)

// Service is the token ledger.
type Service struct {
	db *db.DB
}

func New(d *db.DB) (*Service, error) {
	if d == nil {
		return nil, errors.New("db is required")
	}
	return &Service{db: d}, nil
}

// Credit adds amount tokens to the user's balance and returns the new
// total. The increment executes as a single UPDATE under the storage
// engine's concurrency control; concurrent credits for the same account
// all land, with no lost updates and no application-side read-modify-write.
func (s *Service) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, ok, err := s.db.CreditTokens(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownUser
	}
	return balance, nil
}

// Balance reads the current token balance for display.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	u, ok, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownUser
	}
	return u.Tokens, nil
}
