// Package identities declares storage for sign-in accounts.
package identities

import (
	"context"

	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

// Repository stores identities. Lookups of unknown accounts return
// common.ErrorNotFound; Create returns common.ErrorAlreadyExists when the
// email is taken.
type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	UpdateCredentials(ctx context.Context, id string, salt, verifier []byte) error
	Delete(ctx context.Context, id string) error
}
