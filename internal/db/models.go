// Package db defines persistence models for the mining service.
package db

// User is a durable account. Tokens only ever grows, through CreditTokens.
type User struct {
	ID        int64
	Username  string
	PassHash  string
	Tokens    int64
	CreatedAt int64
}

// Session binds an opaque token to a user plus the per-login mining
// progress counter. Progress is cosmetic and lives in [0,100).
type Session struct {
	Token     string
	UserID    int64
	Progress  int
	CreatedAt int64
	ExpiresAt int64
}
