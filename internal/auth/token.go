package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// NewToken returns a random opaque token of nbytes entropy,
// base64url-encoded without padding.
func NewToken(nbytes int) (string, error) {
	if nbytes < 16 {
		return "", errors.New("token size too small")
	}
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignToken produces the tamper-evident cookie value "token.sig" where
// sig is an HMAC-SHA256 over the token with the session signing secret.
func SignToken(token string, secret []byte) (string, error) {
	if token == "" {
		return "", errors.New("token is required")
	}
	if len(secret) < 16 {
		return "", errors.New("signing secret too small")
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return token + "." + sig, nil
}

// VerifySignedToken checks the cookie value's signature and returns the
// embedded token. A bad format or mismatched signature yields ok=false.
func VerifySignedToken(value string, secret []byte) (string, bool) {
	token, sig, found := strings.Cut(value, ".")
	if !found || token == "" || sig == "" {
		return "", false
	}
	want, err := SignToken(token, secret)
	if err != nil {
		return "", false
	}
	if hmac.Equal([]byte(value), []byte(want)) {
		return token, true
	}
	return "", false
}
