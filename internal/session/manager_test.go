package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-lord1/Mineb/internal/db"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, int64) {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	userID, err := d.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	m, err := New(d, testSecret, ttl)
	require.NoError(t, err)
	return m, userID
}

func TestCreateAndResolve(t *testing.T) {
	m, userID := newTestManager(t, time.Hour)
	ctx := context.Background()

	sess, cookie, err := m.Create(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, 0, sess.Progress)
	assert.Contains(t, cookie, ".")

	got, err := m.Resolve(ctx, cookie)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, got.Token)
	assert.Equal(t, userID, got.UserID)
}

func TestResolve_TamperedCookie(t *testing.T) {
	m, userID := newTestManager(t, time.Hour)
	ctx := context.Background()

	_, cookie, err := m.Create(ctx, userID)
	require.NoError(t, err)

	tok, _, _ := strings.Cut(cookie, ".")
	flip := byte('A')
	if tok[0] == flip {
		flip = 'B'
	}
	tampered := string(flip) + tok[1:] + cookie[len(tok):]

	_, err = m.Resolve(ctx, tampered)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDestroy_Idempotent(t *testing.T) {
	m, userID := newTestManager(t, time.Hour)
	ctx := context.Background()

	sess, cookie, err := m.Create(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, sess.Token))
	_, err = m.Resolve(ctx, cookie)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Destroying again is still fine.
	require.NoError(t, m.Destroy(ctx, sess.Token))
	require.NoError(t, m.Destroy(ctx, ""))
}

func TestConcurrentSessionsStayIndependent(t *testing.T) {
	m, userID := newTestManager(t, time.Hour)
	ctx := context.Background()

	s1, c1, err := m.Create(ctx, userID)
	require.NoError(t, err)
	s2, c2, err := m.Create(ctx, userID)
	require.NoError(t, err)
	require.NotEqual(t, s1.Token, s2.Token)

	// Advancing one session leaves the other at zero.
	p, err := m.Advance(ctx, s1.Token, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, p)

	got1, err := m.Resolve(ctx, c1)
	require.NoError(t, err)
	got2, err := m.Resolve(ctx, c2)
	require.NoError(t, err)
	assert.Equal(t, 30, got1.Progress)
	assert.Equal(t, 0, got2.Progress)

	// Destroying one does not touch the other.
	require.NoError(t, m.Destroy(ctx, s1.Token))
	_, err = m.Resolve(ctx, c2)
	require.NoError(t, err)
}

func TestAdvance_WrapsAt100(t *testing.T) {
	m, userID := newTestManager(t, time.Hour)
	ctx := context.Background()

	sess, _, err := m.Create(ctx, userID)
	require.NoError(t, err)

	p, err := m.Advance(ctx, sess.Token, 95)
	require.NoError(t, err)
	require.Equal(t, 95, p)

	p, err = m.Advance(ctx, sess.Token, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestSweepExpired(t *testing.T) {
	m, userID := newTestManager(t, time.Second)
	ctx := context.Background()

	_, cookie, err := m.Create(ctx, userID)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = m.Resolve(ctx, cookie)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	n, err := m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
