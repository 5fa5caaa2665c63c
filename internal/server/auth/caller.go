package auth

import (
	"context"
	"time"
)

// Caller is the authenticated user of the current request.
type Caller struct {
	UserID   string
	AuthTime time.Time
}

type ctxKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// CallerFrom returns the caller stored by the access token interceptor.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok && c.UserID != ""
}
