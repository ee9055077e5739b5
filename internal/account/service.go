// Package account owns identity creation and password verification.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/git-lord1/Mineb/internal/auth"
	"github.com/git-lord1/Mineb/internal/db"
	"github.com/git-lord1/Mineb/internal/validate"
)

var (
	// ErrInvalidInput covers empty or malformed registration fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrAuthenticationFailed covers both unknown usernames and wrong
	// passwords. The two causes are deliberately indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Service registers accounts and verifies credentials against the
// durable user table.
type Service struct {
	db        *db.DB
	params    auth.Argon2Params
	minPwLen  int
	decoyHash string
}

// New constructs the credential store. minPasswordLen below 1 falls back
// to the documented default of 6.
func New(d *db.DB, minPasswordLen int) (*Service, error) {
	if d == nil {
		return nil, errors.New("db is required")
	}
	if minPasswordLen < 1 {
		minPasswordLen = 6
	}
	params := auth.DefaultArgon2Params()
	// Hash a throwaway value once so Verify can burn the same work on
	// unknown usernames, keeping their latency in line with mismatches.
	decoy, err := auth.HashPassword("mineb-decoy", params)
	if err != nil {
		return nil, err
	}
	return &Service{db: d, params: params, minPwLen: minPasswordLen, decoyHash: decoy}, nil
}

// Register creates a new account with a zero token balance and returns
// its user ID.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if err := validate.Username(username); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := validate.Password(password, s.minPwLen); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(password, s.params)
	if err != nil {
		return 0, err
	}
	id, err := s.db.CreateUser(ctx, username, hash)
	if errors.Is(err, db.ErrUsernameTaken) {
		return 0, ErrDuplicateUsername
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Verify checks a username/password pair and returns the user ID.
// Unknown usernames and wrong passwords both surface as
// ErrAuthenticationFailed.
func (s *Service) Verify(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, ErrAuthenticationFailed
	}

	u, ok, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Equalize latency with the known-user path.
		_, _ = auth.VerifyPassword(password, s.decoyHash)
		return 0, ErrAuthenticationFailed
	}

	match, err := auth.VerifyPassword(password, u.PassHash)
	if err != nil || !match {
		return 0, ErrAuthenticationFailed
	}
	return u.ID, nil
}
