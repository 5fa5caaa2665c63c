// Package resetcodes stores single-use password reset codes.
package resetcodes

import (
	"context"

	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.ResetCode) error
	// Find returns common.ErrorNotFound for unknown codes. Expiry is checked
	// by the caller.
	Find(ctx context.Context, code string) (*models.ResetCode, error)
	Delete(ctx context.Context, code string) error
}
