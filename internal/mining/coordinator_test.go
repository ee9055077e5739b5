package mining

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-lord1/Mineb/internal/db"
	"github.com/git-lord1/Mineb/internal/ledger"
	"github.com/git-lord1/Mineb/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestCoordinator(t *testing.T) (*Coordinator, session.Session, *ledger.Service, int64) {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	userID, err := d.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	led, err := ledger.New(d)
	require.NoError(t, err)
	sm, err := session.New(d, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	sess, _, err := sm.Create(ctx, userID)
	require.NoError(t, err)

	c, err := New(led, sm, DefaultBounds(), testLogger())
	require.NoError(t, err)
	return c, sess, led, userID
}

func TestNew_RejectsBadBounds(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	bad := []Bounds{
		{RewardMin: 0, RewardMax: 5, ProgressMin: 5, ProgressMax: 20},
		{RewardMin: 5, RewardMax: 1, ProgressMin: 5, ProgressMax: 20},
		{RewardMin: 1, RewardMax: 5, ProgressMin: 20, ProgressMax: 5},
		{RewardMin: 1, RewardMax: 5, ProgressMin: 5, ProgressMax: 100},
	}
	for _, b := range bad {
		_, err := New(c.ledger, c.sessions, b, testLogger())
		assert.Error(t, err, "bounds %+v", b)
	}
}

// TestTick_AccumulatesExactly runs two ticks and checks the balance is
// the exact sum of the returned rewards.
func TestTick_AccumulatesExactly(t *testing.T) {
	c, sess, led, userID := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.Tick(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first.Reward, first.Tokens)

	second, err := c.Tick(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first.Reward+second.Reward, second.Tokens)

	balance, err := led.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.Tokens, balance)
}

// TestTick_DrawBounds samples many ticks and checks both draws stay in
// their closed intervals.
func TestTick_DrawBounds(t *testing.T) {
	c, sess, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	var prev int
	for i := 0; i < 250; i++ {
		res, err := c.Tick(ctx, sess)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Reward, int64(1))
		assert.LessOrEqual(t, res.Reward, int64(5))
		assert.GreaterOrEqual(t, res.Progress, 0)
		assert.Less(t, res.Progress, 100)
		if res.Progress > prev {
			delta := res.Progress - prev
			assert.GreaterOrEqual(t, delta, 5)
			assert.LessOrEqual(t, delta, 20)
		}
		prev = res.Progress
	}
}

func TestTick_UnknownUserFails(t *testing.T) {
	c, sess, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	ghost := session.Session{Token: sess.Token, UserID: 4242}
	_, err := c.Tick(ctx, ghost)
	assert.ErrorIs(t, err, ledger.ErrUnknownUser)
}

func TestDrawUniform_CoversInterval(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		v := drawUniform(1, 5)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 5)
		seen[v] = true
	}
	assert.Len(t, seen, 5)
}
