package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/logging"
)

var (
	ErrStore      = errors.New("store request failed")
	ErrValidation = models.ErrValidation
	ErrForbidden  = errors.New("operation not permitted")

	ErrNotSignedIn = errors.New("not signed in")
	// ErrProfileMissing means the identity exists but has no profile document.
	ErrProfileMissing = errors.New("profile not found")
)

func storeError(ctx context.Context, logger logging.Logger, op string, err error) error {
	logger.Error(ctx, "store request failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
