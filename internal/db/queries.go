// Database query helpers. Lookups follow a (value, ok, err) convention;
// mutations that must be atomic are single UPDATE statements.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrUsernameTaken is returned by CreateUser on a username collision.
var ErrUsernameTaken = errors.New("username already taken")

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// GetConfig fetches a single config key from the database.
// The boolean indicates whether the key exists.
func (d *DB) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&v)
	if err == nil {
		return v, true, nil
	}
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return "", false, err
}

// SetConfig upserts a config key/value pair and updates its timestamp.
func (d *DB) SetConfig(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("config key is required")
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO config(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, nowUnix())
	return err
}

// IsInitialized reports whether setup has completed.
func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	v, ok, err := d.GetConfig(ctx, "initialized")
	if err != nil {
		return false, err
	}
	return ok && v == "1", nil
}

// SetInitialized marks the database as setup-complete.
func (d *DB) SetInitialized(ctx context.Context) error {
	return d.SetConfig(ctx, "initialized", "1")
}

// GetAdminPasswordHash returns the stored admin password hash.
func (d *DB) GetAdminPasswordHash(ctx context.Context) (string, bool, error) {
	return d.GetConfig(ctx, "admin_password_hash")
}

// SetAdminPasswordHash stores the admin password hash.
func (d *DB) SetAdminPasswordHash(ctx context.Context, hash string) error {
	return d.SetConfig(ctx, "admin_password_hash", hash)
}

// GetSessionSecret returns the cookie-signing secret written by setup.
func (d *DB) GetSessionSecret(ctx context.Context) (string, bool, error) {
	return d.GetConfig(ctx, "session_secret")
}

// SetSessionSecret stores the cookie-signing secret.
func (d *DB) SetSessionSecret(ctx context.Context, secret string) error {
	if secret == "" {
		return errors.New("session secret is required")
	}
	return d.SetConfig(ctx, "session_secret", secret)
}

// CreateUser inserts a new user with a zero token balance and returns its
// database ID. A username collision yields ErrUsernameTaken.
func (d *DB) CreateUser(ctx context.Context, username, passHash string) (int64, error) {
	if username == "" || passHash == "" {
		return 0, errors.New("username and password hash are required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO users(username, password_hash, tokens, created_at) VALUES(?, ?, 0, ?)
`, username, passHash, nowUnix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetUserByUsername looks up a user by username. Usernames are case-sensitive.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	var u User
	err := d.sql.QueryRowContext(ctx, `
SELECT id, username, password_hash, tokens, created_at FROM users WHERE username=?
`, username).Scan(&u.ID, &u.Username, &u.PassHash, &u.Tokens, &u.CreatedAt)
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// GetUserByID looks up a user by ID.
func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, bool, error) {
	var u User
	err := d.sql.QueryRowContext(ctx, `
SELECT id, username, password_hash, tokens, created_at FROM users WHERE id=?
`, id).Scan(&u.ID, &u.Username, &u.PassHash, &u.Tokens, &u.CreatedAt)
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// ListUsers returns all users sorted by username.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, username, password_hash, tokens, created_at FROM users ORDER BY username ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PassHash, &u.Tokens, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetUserPasswordHash updates a user's password hash.
func (d *DB) SetUserPasswordHash(ctx context.Context, id int64, passHash string) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if passHash == "" {
		return errors.New("password hash is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, passHash, id)
	return err
}

// CreditTokens adds amount to a user's balance and returns the new total.
// The increment is a single UPDATE so concurrent credits never lose
// updates; the balance is never read back and re-written at this layer or
// any layer above it. The boolean is false when the user does not exist.
func (d *DB) CreditTokens(ctx context.Context, userID, amount int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, errors.New("invalid user id")
	}
	if amount <= 0 {
		return 0, false, errors.New("credit amount must be positive")
	}
	var balance int64
	err := d.sql.QueryRowContext(ctx, `
UPDATE users SET tokens = tokens + ? WHERE id = ? RETURNING tokens
`, amount, userID).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return 0, false, err
}

// CreateSession inserts a new session token with expiration and zero progress.
func (d *DB) CreateSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if token == "" || userID <= 0 {
		return errors.New("invalid session")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO sessions(token, user_id, progress, created_at, expires_at)
VALUES(?, ?, 0, ?, ?)
`, token, userID, now, now+int64(ttl.Seconds()))
	return err
}

// GetSession looks up a session by token.
func (d *DB) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var s Session
	err := d.sql.QueryRowContext(ctx, `
SELECT token, user_id, progress, created_at, expires_at FROM sessions WHERE token=?
`, token).Scan(&s.Token, &s.UserID, &s.Progress, &s.CreatedAt, &s.ExpiresAt)
	if err == nil {
		return &s, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// DeleteSession removes a session by token.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteExpiredSessions deletes sessions that have expired.
func (d *DB) DeleteExpiredSessions(ctx context.Context, nowUnix int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, nowUnix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateAdminSession inserts an operator session token with expiration.
func (d *DB) CreateAdminSession(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token is required")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO admin_sessions(token, created_at, expires_at) VALUES(?, ?, ?)
`, token, now, now+int64(ttl.Seconds()))
	return err
}

// GetAdminSessionExpiry returns an operator session's expiry time.
func (d *DB) GetAdminSessionExpiry(ctx context.Context, token string) (int64, bool, error) {
	var exp int64
	err := d.sql.QueryRowContext(ctx, `SELECT expires_at FROM admin_sessions WHERE token=?`, token).Scan(&exp)
	if err == nil {
		return exp, true, nil
	}
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return 0, false, err
}

// DeleteAdminSession removes an operator session by token.
func (d *DB) DeleteAdminSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token=?`, token)
	return err
}

// AdvanceSessionProgress adds delta to a session's progress counter,
// wrapping to zero when the sum reaches 100. The wrap rule runs inside the
// UPDATE so interleaved ticks from the same session stay consistent.
// The boolean is false when the session does not exist.
func (d *DB) AdvanceSessionProgress(ctx context.Context, token string, delta int) (int, bool, error) {
	if token == "" {
		return 0, false, errors.New("token is required")
	}
	if delta <= 0 {
		return 0, false, errors.New("progress delta must be positive")
	}
	var progress int
	err := d.sql.QueryRowContext(ctx, `
UPDATE sessions
SET progress = CASE WHEN progress + ?1 >= 100 THEN 0 ELSE progress + ?1 END
WHERE token = ?2
RETURNING progress
`, delta, token).Scan(&progress)
	if err == nil {
		return progress, true, nil
	}
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return 0, false, err
}
