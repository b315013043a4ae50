package session

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a refresh token is unknown, expired or already used.
var ErrNotFound = errors.New("session not found")

// Session is a persisted refresh token. Only the SHA-256 hash of the token is stored.
type Session struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
