// Package gateway declares the identity service the client signs in
// through. The gRPC client in package client is the production
// implementation.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
)

// Identity is a signed-in account as seen by the client.
type Identity struct {
	UID       string
	Email     string
	CreatedAt time.Time
}

// AuthError is the typed failure returned by Gateway methods.
type AuthError = common.AuthError

type Gateway interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	CreateIdentity(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	// VerifyResetCode returns the email the code was issued for.
	VerifyResetCode(ctx context.Context, code string) (string, error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	// Reauthenticate proves the current password again, refreshing the
	// session's authentication time.
	Reauthenticate(ctx context.Context, currentPassword string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	DeleteIdentity(ctx context.Context) error
	// OnIdentityChange registers fn to be called with the new identity on
	// sign-in and with nil on sign-out, account deletion or session expiry.
	OnIdentityChange(fn func(*Identity)) (unsubscribe func())
}

var messages = map[common.AuthCode]string{
	common.CodeWrongPassword:       "Incorrect password.",
	common.CodeWeakPassword:        "Password must be at least 6 characters long.",
	common.CodeRequiresRecentLogin: "For security reasons, please sign in again before doing this.",
	common.CodeUserNotFound:        "No account exists with this email.",
	common.CodeEmailAlreadyInUse:   "This email is already registered.",
	common.CodeInvalidEmail:        "Please enter a valid email address.",
	common.CodeInvalidResetCode:    "This reset link is invalid or was already used.",
	common.CodeExpiredResetCode:    "This reset link has expired. Please request a new one.",
	common.CodeUnavailable:         "The service is unavailable. Please try again later.",
	common.CodeInternal:            "Something went wrong. Please try again.",
}

// Message returns a user-facing text for err.
func Message(err error) string {
	if code, ok := common.AuthCodeOf(err); ok {
		return messages[code]
	}
	if errors.Is(err, common.ErrorUnauthorized) {
		return "Your session has ended. Please sign in again."
	}
	return messages[common.CodeInternal]
}
