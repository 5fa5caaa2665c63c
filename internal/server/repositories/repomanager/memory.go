package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/identities"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/resetcodes"
)

// MemoryRepositoryManager keeps everything in process memory. The db
// handles passed to the factories are ignored. Transactions are serialized
// but not rolled back on error.
type MemoryRepositoryManager struct {
	txMu          sync.Mutex
	identities    *identities.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	resetCodes    *resetcodes.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		identities:    identities.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		resetCodes:    resetcodes.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) DB() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Identities(dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) ResetCodes(dbx.DBTX) resetcodes.Repository {
	return m.resetCodes
}
