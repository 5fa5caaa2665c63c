package identities

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps identities in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]models.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]models.Identity{}}
}

func (r *MemoryRepository) Create(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, identity.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	identity.ID = uuid.NewString()
	identity.CreatedAt = time.Now().UTC()
	r.byID[identity.ID] = *identity
	return identity, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, email) {
			found := existing
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &existing, nil
}

func (r *MemoryRepository) UpdateCredentials(_ context.Context, id string, salt, verifier []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	existing.Salt = salt
	existing.Verifier = verifier
	r.byID[id] = existing
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}
