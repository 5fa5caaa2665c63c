// Package logging is the structured logger shared by the LinkStash server
// and client. SlogLogger backs it with log/slog and an optional rotating
// file.
package logging

import "context"

// Logger takes a message plus alternating key and value arguments:
//
//	logger.Info(ctx, "item added", "kind", "link", "id", id)
//
// Debug output is dropped unless the configured level is debug.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}
