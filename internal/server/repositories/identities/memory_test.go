package identities

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Identity{Email: "ann@example.com", Salt: []byte("s"), Verifier: []byte("v")})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, &models.Identity{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	byEmail, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	require.NoError(t, repo.UpdateCredentials(ctx, created.ID, []byte("s2"), []byte("v2")))
	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), byID.Verifier)

	assert.ErrorIs(t, repo.UpdateCredentials(ctx, "ghost", nil, nil), common.ErrorNotFound)

	require.NoError(t, repo.Delete(ctx, created.ID))
	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByEmail(ctx, "ann@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
