package models

import "time"

// ResetCode is a single-use password reset code mailed to Email.
type ResetCode struct {
	Code    string
	UserID  string
	Email   string
	Expires time.Time
}
