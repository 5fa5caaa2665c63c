package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is a stored refresh token. Only the digest of the token
// handed to the client is kept.
type RefreshToken struct {
	UserID    string
	Digest    string
	AuthTime  time.Time
	ExpiresAt time.Time
}

// DigestRefreshToken returns the lookup key for a raw refresh token.
func DigestRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
