package resetcodes

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.Mutex
	codes map[string]models.ResetCode
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{codes: map[string]models.ResetCode{}}
}

func (r *MemoryRepository) Create(_ context.Context, code *models.ResetCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.Code]; exists {
		return common.ErrorAlreadyExists
	}
	r.codes[code.Code] = *code
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, code string) (*models.ResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc, ok := r.codes[code]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rc, nil
}

func (r *MemoryRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.codes, code)
	return nil
}
