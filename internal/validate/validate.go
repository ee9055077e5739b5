// Package validate contains input validation helpers for account data.
package validate

import (
	"errors"
	"regexp"
)

// usernameRe enforces a conservative username pattern: 1-50 chars,
// starting with a letter or digit.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,49}$`)

// Username validates a username string for length and allowed characters.
// Usernames are case-sensitive; no normalization is applied.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

// Password validates a password against the configured minimum length.
func Password(s string, minLen int) error {
	if s == "" {
		return errors.New("password is required")
	}
	if len(s) < minLen {
		return errors.New("password is too short")
	}
	return nil
}
