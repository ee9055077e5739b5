// Token and cookie-signature tests.
package auth

import (
	"strings"
	"testing"
)

// TestNewToken checks entropy floor and uniqueness.
func TestNewToken(t *testing.T) {
	if _, err := NewToken(8); err == nil {
		t.Fatalf("expected error for small token")
	}
	a, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if a == b {
		t.Fatalf("expected unique tokens")
	}
}

// TestSignAndVerifyToken round-trips a signed cookie value.
func TestSignAndVerifyToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	tok, err := NewToken(32)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	signed, err := SignToken(tok, secret)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	got, ok := VerifySignedToken(signed, secret)
	if !ok || got != tok {
		t.Fatalf("expected valid signature, got ok=%v token=%q", ok, got)
	}
}

// TestVerifySignedToken_Tampered rejects altered values and wrong secrets.
func TestVerifySignedToken_Tampered(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	signed, err := SignToken("sometoken", secret)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	if _, ok := VerifySignedToken("other"+signed[strings.Index(signed, "."):], secret); ok {
		t.Fatalf("expected tampered token to fail")
	}
	if _, ok := VerifySignedToken(signed, []byte("ffffffffffffffffffffffffffffffff")); ok {
		t.Fatalf("expected wrong secret to fail")
	}
	if _, ok := VerifySignedToken("no-separator", secret); ok {
		t.Fatalf("expected malformed value to fail")
	}
}
