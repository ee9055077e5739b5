// Package mining composes the ledger, session manager, and reward draws
// into the per-tick mining operation.
package mining

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/git-lord1/Mineb/internal/ledger"
	"github.com/git-lord1/Mineb/internal/metrics"
	"github.com/git-lord1/Mineb/internal/session"
)

// Bounds are the closed integer intervals for the per-tick draws.
type Bounds struct {
	RewardMin   int
	RewardMax   int
	ProgressMin int
	ProgressMax int
}

// DefaultBounds yields rewards in [1,5] and progress steps in [5,20].
func DefaultBounds() Bounds {
	return Bounds{RewardMin: 1, RewardMax: 5, ProgressMin: 5, ProgressMax: 20}
}

// TickResult is the snapshot returned by one mining tick.
type TickResult struct {
	Reward   int64
	Tokens   int64
	Progress int
}

// Coordinator runs mining ticks. It holds no mutable state of its own;
// all shared state lives in the storage layer.
type Coordinator struct {
	ledger   *ledger.Service
	sessions *session.Manager
	bounds   Bounds
	logger   *slog.Logger
}

func New(l *ledger.Service, sm *session.Manager, b Bounds, logger *slog.Logger) (*Coordinator, error) {
	if l == nil || sm == nil {
		return nil, errors.New("ledger and session manager are required")
	}
	if b.RewardMin < 1 || b.RewardMax < b.RewardMin {
		return nil, errors.New("invalid reward bounds")
	}
	if b.ProgressMin < 1 || b.ProgressMax < b.ProgressMin || b.ProgressMax >= 100 {
		return nil, errors.New("invalid progress bounds")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{ledger: l, sessions: sm, bounds: b, logger: logger}, nil
}

// Tick performs one mining tick for an already-resolved session: draw a
// reward, credit it, advance the cosmetic progress counter. Each call is
// independently valid and every successful call mints a fresh reward.
func (c *Coordinator) Tick(ctx context.Context, sess session.Session) (TickResult, error) {
	reward := int64(drawUniform(c.bounds.RewardMin, c.bounds.RewardMax))

	balance, err := c.ledger.Credit(ctx, sess.UserID, reward)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownUser) {
			// A valid session pointing at a missing account is an
			// integrity fault, not a user error.
			c.logger.Error("mining tick hit unknown user", "user_id", sess.UserID)
		}
		metrics.ObserveTick("error", 0)
		return TickResult{}, err
	}

	delta := drawUniform(c.bounds.ProgressMin, c.bounds.ProgressMax)
	progress, err := c.sessions.Advance(ctx, sess.Token, delta)
	if err != nil {
		// The credit already landed; report the tick with the session's
		// last known progress rather than failing the response.
		c.logger.Warn("progress advance failed after credit", "err", err)
		progress = sess.Progress
	}

	metrics.ObserveTick("ok", reward)
	return TickResult{Reward: reward, Tokens: balance, Progress: progress}, nil
}

// drawUniform picks uniformly from the closed interval [lo, hi].
func drawUniform(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}
