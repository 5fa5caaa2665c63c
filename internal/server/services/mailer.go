package services

import (
	"context"

	"github.com/dmitrijs2005/linkstash/internal/logging"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogMailer writes reset codes to the server log instead of sending mail.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendResetCode(ctx context.Context, email, code string) error {
	m.logger.Info(ctx, "password reset code issued", "email", email, "code", code)
	return nil
}
