// Package models defines server-side records persisted by the repositories.
package models

import "time"

// Identity is a sign-in account. Only a salt and a verifier derived from the
// password are kept.
type Identity struct {
	ID        string
	Email     string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
