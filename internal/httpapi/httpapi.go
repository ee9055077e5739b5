// Package httpapi exposes the account, session, and mining operations as
// a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/git-lord1/Mineb/internal/account"
	"github.com/git-lord1/Mineb/internal/db"
	"github.com/git-lord1/Mineb/internal/metrics"
	"github.com/git-lord1/Mineb/internal/mining"
	"github.com/git-lord1/Mineb/internal/session"
	"github.com/git-lord1/Mineb/internal/version"
)

const (
	sessionCookie = "mb_session"
	adminCookie   = "mb_admin"
)

type Server struct {
	DB       *db.DB
	Accounts *account.Service
	Sessions *session.Manager
	Miner    *mining.Coordinator
	Logger   *slog.Logger

	// Limiter guards /login and /mine. Nil disables limiting.
	Limiter *KeyedLimiter

	// Secure controls the cookie Secure attribute; set when serving TLS.
	Secure bool

	AdminTTL time.Duration
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/mine", s.withUser(s.handleMine))
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", metrics.Handler())

	// Admin API
	mux.HandleFunc("/api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("/api/admin/logout", s.handleAdminLogout)
	mux.HandleFunc("/api/admin/users", s.withAdmin(s.handleAdminUsers))
	mux.HandleFunc("/api/admin/users/", s.withAdmin(s.handleAdminUserByID))

	var h http.Handler = mux
	h = withSecurityHeaders(h)
	h = s.withMetrics(h)
	h = s.withRequestLog(h)
	h = s.withRecover(h)
	return h
}

func (s *Server) adminTTL() time.Duration {
	if s.AdminTTL > 0 {
		return s.AdminTTL
	}
	return 12 * time.Hour
}

// handleStatus is the liveness probe. No side effects.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": version.Version})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	username, password, ok := readCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := s.Accounts.Register(r.Context(), username, password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case errors.Is(err, account.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password required"})
	case errors.Is(err, account.ErrDuplicateUsername):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "username already taken"})
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !s.allow(w, clientIP(r)) {
		return
	}

	username, password, ok := readCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	userID, err := s.Accounts.Verify(r.Context(), username, password)
	if errors.Is(err, account.ErrAuthenticationFailed) {
		// Unknown user and wrong password are indistinguishable here.
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	_, cookieVal, err := s.Sessions.Create(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, cookieVal)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if sess, err := s.Sessions.Resolve(r.Context(), c.Value); err == nil {
			_ = s.Sessions.Destroy(r.Context(), sess.Token)
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// handleMine performs one mining tick for the authenticated session.
func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	sess := sessionFromContext(r.Context())
	if !s.allow(w, sess.Token) {
		return
	}

	res, err := s.Miner.Tick(r.Context(), sess)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tokens":           res.Tokens,
		"last_reward":      res.Reward,
		"session_progress": res.Progress,
	})
}

type ctxKey string

const ctxSession ctxKey = "session"

func sessionFromContext(ctx context.Context) session.Session {
	sess, _ := ctx.Value(ctxSession).(session.Session)
	return sess
}

// withUser resolves the session cookie and rejects unauthenticated
// callers before any handler state is touched.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		sess, err := s.Sessions.Resolve(r.Context(), c.Value)
		if errors.Is(err, session.ErrUnauthenticated) {
			s.clearSessionCookie(w)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxSession, sess)))
	}
}

// serverError maps transient storage faults to 503 and everything else
// to an opaque 500. Details go to the log, never the response.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	if db.IsRetryable(err) {
		s.Logger.Warn("storage unavailable", "path", r.URL.Path, "err", err)
		w.Header().Set("retry-after", "1")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
		return
	}
	s.Logger.Error("request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
}

// allow applies the keyed limiter, answering 429 when the key is over
// budget. A nil limiter allows everything.
func (s *Server) allow(w http.ResponseWriter, key string) bool {
	if s.Limiter == nil || s.Limiter.Allow(key) {
		return true
	}
	w.Header().Set("retry-after", "1")
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
	return false
}

// readCredentials accepts either a JSON body or form fields so plain
// browser form posts work at these endpoints.
func readCredentials(r *http.Request) (username, password string, ok bool) {
	if strings.HasPrefix(r.Header.Get("content-type"), "application/json") {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", false
		}
		return req.Username, req.Password, true
	}
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	return r.PostFormValue("username"), r.PostFormValue("password"), true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.Sessions.TTL().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		if r.TLS != nil {
			w.Header().Set("strict-transport-security", "max-age=31536000")
		}
		next.ServeHTTP(w, r)
	})
}
