// Package daemon wires the services together and runs the HTTP server.
package daemon

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/git-lord1/Mineb/internal/account"
	"github.com/git-lord1/Mineb/internal/config"
	"github.com/git-lord1/Mineb/internal/db"
	"github.com/git-lord1/Mineb/internal/httpapi"
	"github.com/git-lord1/Mineb/internal/ledger"
	"github.com/git-lord1/Mineb/internal/mining"
	"github.com/git-lord1/Mineb/internal/session"
)

// Run starts the daemon and blocks until ctx is canceled or the HTTP
// server fails. On cancellation it shuts the server down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.DB.Path == "" {
		return errors.New("db path is required")
	}
	d, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer d.Close()

	initialized, err := d.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return errors.New("not initialized; run setup")
	}

	secret, ok, err := d.GetSessionSecret(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("missing session secret; run setup")
	}

	certPath, keyPath, err := resolveTLS(ctx, d, cfg)
	if err != nil {
		return err
	}
	useTLS := certPath != "" && keyPath != ""

	accounts, err := account.New(d, cfg.Account.MinPasswordLen)
	if err != nil {
		return err
	}
	led, err := ledger.New(d)
	if err != nil {
		return err
	}
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	sessions, err := session.New(d, []byte(secret), ttl)
	if err != nil {
		return err
	}
	miner, err := mining.New(led, sessions, mining.Bounds{
		RewardMin:   cfg.Mining.RewardMin,
		RewardMax:   cfg.Mining.RewardMax,
		ProgressMin: cfg.Mining.ProgressMin,
		ProgressMax: cfg.Mining.ProgressMax,
	}, logger)
	if err != nil {
		return err
	}

	var limiter *httpapi.KeyedLimiter
	if cfg.RateLimit.PerSecond > 0 {
		limiter = httpapi.NewKeyedLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
		defer limiter.Stop()
	}

	api := &httpapi.Server{
		DB:       d,
		Accounts: accounts,
		Sessions: sessions,
		Miner:    miner,
		Logger:   logger,
		Limiter:  limiter,
		Secure:   useTLS,
	}

	addr := net.JoinHostPort(cfg.HTTP.Bind, strconv.Itoa(cfg.HTTP.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	if useTLS {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sweepLoop(sweepCtx, sessions, cfg.Session.SweepIntervalMin, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "tls", useTLS)
		if useTLS {
			errCh <- srv.ListenAndServeTLS(certPath, keyPath)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// resolveTLS prefers paths from the YAML config, then falls back to
// paths stored by setup. Both empty means plain HTTP.
func resolveTLS(ctx context.Context, d *db.DB, cfg config.Config) (string, string, error) {
	certPath := strings.TrimSpace(cfg.HTTP.TLS.CertPath)
	keyPath := strings.TrimSpace(cfg.HTTP.TLS.KeyPath)
	if certPath != "" && keyPath != "" {
		return certPath, keyPath, nil
	}
	if certPath != "" || keyPath != "" {
		return "", "", errors.New("tls cert and key must both be set")
	}

	v, ok, err := d.GetConfig(ctx, "tls_cert_path")
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", nil
	}
	certPath = v
	v, ok, err = d.GetConfig(ctx, "tls_key_path")
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", errors.New("tls cert path set without key; re-run setup")
	}
	return certPath, v, nil
}

func sweepLoop(ctx context.Context, sessions *session.Manager, intervalMin int, logger *slog.Logger) {
	if intervalMin <= 0 {
		intervalMin = 15
	}
	t := time.NewTicker(time.Duration(intervalMin) * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.SweepExpired(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("session sweep", "deleted", n)
			}
		}
	}
}
