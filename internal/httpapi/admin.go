// Operator API handlers. The admin credential is a single password set
// during setup; admin sessions live in their own table.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/git-lord1/Mineb/internal/auth"
	"github.com/git-lord1/Mineb/internal/validate"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !s.allow(w, "admin:"+clientIP(r)) {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing credentials"})
		return
	}

	hash, ok, err := s.DB.GetAdminPasswordHash(r.Context())
	if err != nil || !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin not configured"})
		return
	}
	okPw, err := auth.VerifyPassword(req.Password, hash)
	if err != nil || !okPw {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tok, err := auth.NewToken(32)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.DB.CreateAdminSession(r.Context(), tok, s.adminTTL()); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setAdminCookie(w, tok)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if c, err := r.Cookie(adminCookie); err == nil && c.Value != "" {
		_ = s.DB.DeleteAdminSession(r.Context(), c.Value)
	}
	s.clearAdminCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(adminCookie)
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		exp, ok, err := s.DB.GetAdminSessionExpiry(r.Context(), c.Value)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		if !ok || exp <= time.Now().Unix() {
			s.clearAdminCookie(w)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.DB.ListUsers(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		type item struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			Tokens    int64  `json:"tokens"`
			CreatedAt int64  `json:"created_at"`
		}
		out := make([]item, 0, len(users))
		for _, u := range users {
			out = append(out, item{ID: u.ID, Username: u.Username, Tokens: u.Tokens, CreatedAt: u.CreatedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": out})
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		id, err := s.Accounts.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "create user failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	parts := strings.Split(path, "/")
	if len(parts) < 1 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	if len(parts) == 2 && parts[1] == "password" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if err := validate.Password(req.Password, 1); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password is required"})
			return
		}
		h, err := auth.HashPassword(req.Password, auth.DefaultArgon2Params())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		if err := s.DB.SetUserPasswordHash(r.Context(), userID, h); err != nil {
			s.serverError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
		return
	}

	http.NotFound(w, r)
}

func (s *Server) setAdminCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.adminTTL().Seconds()),
	})
}

func (s *Server) clearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}
