// End-to-end handler tests over a temp database.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/git-lord1/Mineb/internal/account"
	"github.com/git-lord1/Mineb/internal/auth"
	"github.com/git-lord1/Mineb/internal/db"
	"github.com/git-lord1/Mineb/internal/ledger"
	"github.com/git-lord1/Mineb/internal/mining"
	"github.com/git-lord1/Mineb/internal/session"
)

// testLogger silences logs during handler tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	accounts, err := account.New(d, 6)
	if err != nil {
		t.Fatalf("account.New: %v", err)
	}
	led, err := ledger.New(d)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	sessions, err := session.New(d, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	miner, err := mining.New(led, sessions, mining.DefaultBounds(), testLogger())
	if err != nil {
		t.Fatalf("mining.New: %v", err)
	}

	return &Server{
		DB:       d,
		Accounts: accounts,
		Sessions: sessions,
		Miner:    miner,
		Logger:   testLogger(),
	}, d
}

func postJSON(t *testing.T, h http.Handler, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	r.Header.Set("content-type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return m
}

// TestStatus checks the liveness probe shape.
func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	r := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	m := decodeBody(t, w)
	if m["ok"] != true {
		t.Fatalf("expected ok=true, got %v", m)
	}
	if m["version"] != "1.0" {
		t.Fatalf("expected version 1.0, got %v", m["version"])
	}
}

// TestRegisterLoginMine walks the full happy path: register, login,
// two mining ticks with exact balance accumulation.
func TestRegisterLoginMine(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	if w.Code != 200 {
		t.Fatalf("register: status=%d body=%s", w.Code, w.Body.String())
	}

	w = postJSON(t, h, "/login", `{"username":"alice","password":"secret1"}`, nil)
	if w.Code != 200 {
		t.Fatalf("login: status=%d body=%s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}
	sc := cookies[0]
	if !sc.HttpOnly || sc.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie must be http-only and same-site strict: %+v", sc)
	}
	if !strings.Contains(sc.Value, ".") {
		t.Fatalf("cookie value must carry a signature: %q", sc.Value)
	}

	w = postJSON(t, h, "/mine", "", cookies)
	if w.Code != 200 {
		t.Fatalf("mine: status=%d body=%s", w.Code, w.Body.String())
	}
	first := decodeBody(t, w)
	reward1 := first["last_reward"].(float64)
	tokens1 := first["tokens"].(float64)
	if reward1 < 1 || reward1 > 5 {
		t.Fatalf("reward out of [1,5]: %v", reward1)
	}
	if tokens1 != reward1 {
		t.Fatalf("first tick: tokens %v != reward %v", tokens1, reward1)
	}
	if p := first["session_progress"].(float64); p < 0 || p >= 100 {
		t.Fatalf("progress out of [0,100): %v", p)
	}

	w = postJSON(t, h, "/mine", "", cookies)
	if w.Code != 200 {
		t.Fatalf("mine 2: status=%d body=%s", w.Code, w.Body.String())
	}
	second := decodeBody(t, w)
	if second["tokens"].(float64) != reward1+second["last_reward"].(float64) {
		t.Fatalf("second tick: tokens %v != %v + %v", second["tokens"], reward1, second["last_reward"])
	}
}

// TestRegister_Duplicate returns 409 and keeps the first account intact.
func TestRegister_Duplicate(t *testing.T) {
	s, d := newTestServer(t)
	h := s.Handler()

	w := postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	if w.Code != 200 {
		t.Fatalf("register: status=%d", w.Code)
	}
	w = postJSON(t, h, "/register", `{"username":"alice","password":"newsecret"}`, nil)
	if w.Code != 409 {
		t.Fatalf("expected 409, got %d body=%s", w.Code, w.Body.String())
	}

	u, ok, err := d.GetUserByUsername(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("GetUserByUsername: ok=%v err=%v", ok, err)
	}
	if u.Tokens != 0 {
		t.Fatalf("first account changed: %+v", u)
	}
}

// TestRegister_InvalidInput rejects empty and short credentials.
func TestRegister_InvalidInput(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, body := range []string{
		`{"username":"","password":"secret1"}`,
		`{"username":"alice","password":""}`,
		`{"username":"alice","password":"12345"}`,
	} {
		w := postJSON(t, h, "/register", body, nil)
		if w.Code != 400 {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

// TestLogin_MergedFailure gives the same response for unknown users and
// wrong passwords.
func TestLogin_MergedFailure(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	if w.Code != 200 {
		t.Fatalf("register: status=%d", w.Code)
	}

	wrongPw := postJSON(t, h, "/login", `{"username":"alice","password":"nope123"}`, nil)
	noUser := postJSON(t, h, "/login", `{"username":"nobody","password":"nope123"}`, nil)

	if wrongPw.Code != 401 || noUser.Code != 401 {
		t.Fatalf("expected 401/401, got %d/%d", wrongPw.Code, noUser.Code)
	}
	if wrongPw.Body.String() != noUser.Body.String() {
		t.Fatalf("responses differ: %q vs %q", wrongPw.Body.String(), noUser.Body.String())
	}
}

// TestMine_Unauthenticated returns 401 JSON and credits nothing.
func TestMine_Unauthenticated(t *testing.T) {
	s, d := newTestServer(t)
	h := s.Handler()

	w := postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	if w.Code != 200 {
		t.Fatalf("register: status=%d", w.Code)
	}

	// No cookie at all.
	w = postJSON(t, h, "/mine", "", nil)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	m := decodeBody(t, w)
	if m["error"] == "" {
		t.Fatalf("expected error body, got %v", m)
	}

	// Tampered cookie signature.
	w = postJSON(t, h, "/mine", "", []*http.Cookie{{Name: "mb_session", Value: "forgedtoken.forgedsig"}})
	if w.Code != 401 {
		t.Fatalf("expected 401 for forged cookie, got %d", w.Code)
	}

	u, ok, err := d.GetUserByUsername(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("GetUserByUsername: ok=%v err=%v", ok, err)
	}
	if u.Tokens != 0 {
		t.Fatalf("balance must be untouched, got %d", u.Tokens)
	}
}

// TestLogout invalidates the session and is idempotent.
func TestLogout(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	w := postJSON(t, h, "/login", `{"username":"alice","password":"secret1"}`, nil)
	cookies := w.Result().Cookies()

	w = postJSON(t, h, "/logout", "", cookies)
	if w.Code != 200 {
		t.Fatalf("logout: status=%d", w.Code)
	}

	w = postJSON(t, h, "/mine", "", cookies)
	if w.Code != 401 {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}

	// Logging out again still succeeds.
	w = postJSON(t, h, "/logout", "", cookies)
	if w.Code != 200 {
		t.Fatalf("second logout: status=%d", w.Code)
	}
}

// TestMine_RateLimited rejects a burst beyond the configured budget.
func TestMine_RateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.Limiter = NewKeyedLimiter(1, 2)
	t.Cleanup(s.Limiter.Stop)
	h := s.Handler()

	postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)
	w := postJSON(t, h, "/login", `{"username":"alice","password":"secret1"}`, nil)
	cookies := w.Result().Cookies()

	var got429 bool
	for i := 0; i < 5; i++ {
		w = postJSON(t, h, "/mine", "", cookies)
		if w.Code == 429 {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Fatalf("expected a 429 within the burst")
	}
}

// TestAdminUsers exercises admin login and the user listing.
func TestAdminUsers(t *testing.T) {
	s, d := newTestServer(t)
	h := s.Handler()
	ctx := context.Background()

	// Provision the admin credential the way setup does.
	hash, err := auth.HashPassword("adminpass", auth.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := d.SetAdminPasswordHash(ctx, hash); err != nil {
		t.Fatalf("SetAdminPasswordHash: %v", err)
	}

	postJSON(t, h, "/register", `{"username":"alice","password":"secret1"}`, nil)

	w := postJSON(t, h, "/api/admin/login", `{"password":"adminpass"}`, nil)
	if w.Code != 200 {
		t.Fatalf("admin login: status=%d body=%s", w.Code, w.Body.String())
	}
	adminCookies := w.Result().Cookies()

	r := httptest.NewRequest("GET", "/api/admin/users", nil)
	for _, c := range adminCookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != 200 {
		t.Fatalf("list users: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"alice"`) {
		t.Fatalf("expected alice in listing: %s", rec.Body.String())
	}

	// Wrong admin password is rejected.
	w = postJSON(t, h, "/api/admin/login", `{"password":"wrong"}`, nil)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
