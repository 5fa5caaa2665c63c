package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

type MemoryRepository struct {
	mu       sync.Mutex
	byDigest map[string]models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byDigest: map[string]models.RefreshToken{}}
}

func (r *MemoryRepository) Create(_ context.Context, t models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byDigest[t.Digest]; ok {
		return common.ErrorAlreadyExists
	}
	r.byDigest[t.Digest] = t
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, digest string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byDigest[digest]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Delete(_ context.Context, digest string) error {
	r.mu.Lock()
	delete(r.byDigest, digest)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) deleteWhere(match func(models.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, t := range r.byDigest {
		if match(t) {
			delete(r.byDigest, k)
			n++
		}
	}
	return n
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.deleteWhere(func(t models.RefreshToken) bool { return t.UserID == userID })
	return nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	return r.deleteWhere(func(t models.RefreshToken) bool {
		return t.UserID == userID && t.Expired(now)
	}), nil
}
