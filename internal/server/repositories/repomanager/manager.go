// Package repomanager vends the identity-side repositories for one storage
// backend and runs work against them transactionally.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/identities"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/resetcodes"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// DB is the non-transactional handle passed to the repository factories.
	DB() dbx.DBTX
	// WithTx runs fn with a transactional handle.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Identities(db dbx.DBTX) identities.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	ResetCodes(db dbx.DBTX) resetcodes.Repository
}
