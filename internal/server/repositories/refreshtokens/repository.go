// Package refreshtokens stores refresh token digests.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t models.RefreshToken) error

	// Find returns common.ErrorNotFound for an unknown digest.
	Find(ctx context.Context, digest string) (*models.RefreshToken, error)

	// Delete is a no-op for an unknown digest.
	Delete(ctx context.Context, digest string) error

	// DeleteByUser revokes every token of userID.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired purges userID's tokens that expired at or before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
