package common

import "errors"

// AuthCode identifies an identity failure. The values travel over the wire
// as gRPC status messages and are shared by server and client.
type AuthCode string

const (
	CodeWrongPassword       AuthCode = "wrong-password"
	CodeWeakPassword        AuthCode = "weak-password"
	CodeRequiresRecentLogin AuthCode = "requires-recent-login"
	CodeUserNotFound        AuthCode = "user-not-found"
	CodeEmailAlreadyInUse   AuthCode = "email-already-in-use"
	CodeInvalidEmail        AuthCode = "invalid-email"
	CodeInvalidResetCode    AuthCode = "invalid-reset-code"
	CodeExpiredResetCode    AuthCode = "expired-reset-code"
	CodeUnavailable         AuthCode = "unavailable"
	CodeInternal            AuthCode = "internal"
)

var knownCodes = map[AuthCode]bool{
	CodeWrongPassword:       true,
	CodeWeakPassword:        true,
	CodeRequiresRecentLogin: true,
	CodeUserNotFound:        true,
	CodeEmailAlreadyInUse:   true,
	CodeInvalidEmail:        true,
	CodeInvalidResetCode:    true,
	CodeExpiredResetCode:    true,
	CodeUnavailable:         true,
	CodeInternal:            true,
}

// ParseAuthCode reports whether s is a known code.
func ParseAuthCode(s string) (AuthCode, bool) {
	c := AuthCode(s)
	return c, knownCodes[c]
}

type AuthError struct {
	Code AuthCode
}

func NewAuthError(code AuthCode) *AuthError {
	return &AuthError{Code: code}
}

func (e *AuthError) Error() string {
	return string(e.Code)
}

// Is matches any *AuthError with the same code, so
// errors.Is(err, NewAuthError(CodeWrongPassword)) works.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// AuthCodeOf extracts the code from err.
func AuthCodeOf(err error) (AuthCode, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}
