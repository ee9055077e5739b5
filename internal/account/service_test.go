package account

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-lord1/Mineb/internal/db"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	svc, err := New(d, 6)
	require.NoError(t, err)
	return svc, d
}

func TestRegisterAndVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := svc.Verify(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "othersecret")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	// First account unaffected: old password still verifies.
	got, err := svc.Verify(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRegister_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "secret1"},
		{"empty password", "alice", ""},
		{"short password", "alice", "12345"},
		{"overlong username", strings.Repeat("a", 60), "secret1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

// TestVerify_MergedFailure ensures unknown usernames and wrong passwords
// surface the same error kind, leaving no enumeration signal.
func TestVerify_MergedFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, wrongPw := svc.Verify(ctx, "alice", "wrongpass")
	_, noUser := svc.Verify(ctx, "nobody", "whatever")

	assert.ErrorIs(t, wrongPw, ErrAuthenticationFailed)
	assert.ErrorIs(t, noUser, ErrAuthenticationFailed)
	assert.Equal(t, wrongPw.Error(), noUser.Error())
}

func TestVerify_StoresHashNotPassword(t *testing.T) {
	svc, d := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	u, ok, err := d.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, u.PassHash, "secret1")
	assert.Contains(t, u.PassHash, "$argon2id$")
}
