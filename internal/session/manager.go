// Package session issues, resolves, and destroys cookie-bound sessions,
// and tracks the ephemeral per-session mining progress counter.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/git-lord1/Mineb/internal/auth"
	"github.com/git-lord1/Mineb/internal/db"
)

// ErrUnauthenticated is returned for missing, invalid, tampered, or
// expired session credentials.
var ErrUnauthenticated = errors.New("not authenticated")

// Session is the typed per-login record resolved from a cookie.
type Session struct {
	Token    string
	UserID   int64
	Progress int
}

// Manager owns the sessions table and the cookie signing secret.
type Manager struct {
	db     *db.DB
	secret []byte
	ttl    time.Duration
}

// New constructs a session manager. The secret signs cookie values and
// must come from setup-time configuration, never source code.
func New(d *db.DB, secret []byte, ttl time.Duration) (*Manager, error) {
	if d == nil {
		return nil, errors.New("db is required")
	}
	if len(secret) < 16 {
		return nil, errors.New("session secret too small")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{db: d, secret: secret, ttl: ttl}, nil
}

// TTL reports the configured session lifetime, used for cookie max-age.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create starts a fresh session for the user and returns the session plus
// the signed cookie value. Prior sessions for the user stay valid.
func (m *Manager) Create(ctx context.Context, userID int64) (Session, string, error) {
	tok, err := auth.NewToken(32)
	if err != nil {
		return Session{}, "", err
	}
	if err := m.db.CreateSession(ctx, tok, userID, m.ttl); err != nil {
		return Session{}, "", err
	}
	signed, err := auth.SignToken(tok, m.secret)
	if err != nil {
		return Session{}, "", err
	}
	return Session{Token: tok, UserID: userID, Progress: 0}, signed, nil
}

// Resolve validates a signed cookie value and returns the live session.
// A bad signature, unknown token, or expired session yields
// ErrUnauthenticated.
func (m *Manager) Resolve(ctx context.Context, cookieValue string) (Session, error) {
	tok, ok := auth.VerifySignedToken(cookieValue, m.secret)
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	s, ok, err := m.db.GetSession(ctx, tok)
	if err != nil {
		return Session{}, err
	}
	if !ok || s.ExpiresAt <= time.Now().Unix() {
		return Session{}, ErrUnauthenticated
	}
	return Session{Token: s.Token, UserID: s.UserID, Progress: s.Progress}, nil
}

// Destroy invalidates a session token. Destroying an already-absent
// session is not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.db.DeleteSession(ctx, token)
}

// Advance moves the session's progress counter forward by delta, wrapping
// to zero at 100. The update happens in one statement, so ticks from
// multiple tabs of the same session interleave without corruption.
func (m *Manager) Advance(ctx context.Context, token string, delta int) (int, error) {
	p, ok, err := m.db.AdvanceSessionProgress(ctx, token, delta)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnauthenticated
	}
	return p, nil
}

// SweepExpired deletes expired session rows and returns how many went.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	return m.db.DeleteExpiredSessions(ctx, time.Now().Unix())
}
