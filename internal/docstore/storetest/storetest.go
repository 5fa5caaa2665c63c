// Package storetest is a conformance suite run by every docstore backend's
// tests.
package storetest

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the docstore.Store contract. Each subtest gets a
// fresh store from open.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("CreateRead", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		id, err := s.Create(ctx, "links", docstore.Document{"ownerId": "u1", "name": "Docs", "isShortened": false})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Read(ctx, "links", id)
		require.NoError(t, err)
		assert.Equal(t, docstore.Document{"ownerId": "u1", "name": "Docs", "isShortened": false}, got)
	})

	t.Run("ReadMissing", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		_, err := s.Read(ctx, "links", "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("NestedValues", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		in := docstore.Document{
			"title": "Week",
			"tasks": []any{
				map[string]any{"text": "Buy milk", "completed": false},
				map[string]any{"text": "Walk dog", "completed": true},
			},
			"count": 3,
		}
		id, err := s.Create(ctx, "todos", in)
		require.NoError(t, err)

		got, err := s.Read(ctx, "todos", id)
		require.NoError(t, err)
		assert.Equal(t, docstore.Document{
			"title": "Week",
			"tasks": []any{
				map[string]any{"text": "Buy milk", "completed": false},
				map[string]any{"text": "Walk dog", "completed": true},
			},
			"count": float64(3),
		}, got)
	})

	t.Run("SetCreatesAndReplaces", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		require.NoError(t, s.Set(ctx, "users", "u1", docstore.Document{"name": "Ann", "bio": "hi"}))
		require.NoError(t, s.Set(ctx, "users", "u1", docstore.Document{"name": "Anna"}))

		got, err := s.Read(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, docstore.Document{"name": "Anna"}, got)

		recs, err := s.Scan(ctx, "users", nil)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		id, err := s.Create(ctx, "notes", docstore.Document{"name": "n", "content": "old", "cardColor": "#fff"})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "notes", id, docstore.Document{"content": "new", "extra": true}))

		got, err := s.Read(ctx, "notes", id)
		require.NoError(t, err)
		assert.Equal(t, docstore.Document{"name": "n", "content": "new", "cardColor": "#fff", "extra": true}, got)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		err := s.Update(ctx, "notes", "ghost", docstore.Document{"content": "x"})
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		id, err := s.Create(ctx, "images", docstore.Document{"title": "cat"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "images", id))
		require.NoError(t, s.Delete(ctx, "images", id))

		_, err = s.Read(ctx, "images", id)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("ScanFilterAndOrder", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		var ids []string
		for i, owner := range []string{"u1", "u2", "u1", "u1"} {
			id, err := s.Create(ctx, "links", docstore.Document{"ownerId": owner, "pos": i})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		recs, err := s.Scan(ctx, "links", docstore.Eq("ownerId", "u1"))
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []string{ids[0], ids[2], ids[3]}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
		for _, r := range recs {
			assert.Equal(t, "u1", r.Data["ownerId"])
		}

		all, err := s.Scan(ctx, "links", nil)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, ids[1], all[1].ID)
	})

	t.Run("ScanFilterIgnoresNonStrings", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		_, err := s.Create(ctx, "users", docstore.Document{"isAdmin": true})
		require.NoError(t, err)

		recs, err := s.Scan(ctx, "users", docstore.Eq("isAdmin", "true"))
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ScanEmptyCollection", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		recs, err := s.Scan(ctx, "empty", nil)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		require.NoError(t, s.Set(ctx, "links", "same", docstore.Document{"kind": "link"}))
		require.NoError(t, s.Set(ctx, "notes", "same", docstore.Document{"kind": "note"}))

		got, err := s.Read(ctx, "links", "same")
		require.NoError(t, err)
		assert.Equal(t, "link", got["kind"])
	})

	t.Run("ReturnedDocumentIsACopy", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		id, err := s.Create(ctx, "notes", docstore.Document{"name": "keep"})
		require.NoError(t, err)

		got, err := s.Read(ctx, "notes", id)
		require.NoError(t, err)
		got["name"] = "changed"

		again, err := s.Read(ctx, "notes", id)
		require.NoError(t, err)
		assert.Equal(t, "keep", again["name"])
	})

	t.Run("InvalidKeys", func(t *testing.T) {
		s, ctx := open(t), context.Background()

		_, err := s.Read(ctx, "", "x")
		assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
		assert.ErrorIs(t, s.Set(ctx, "links", "", docstore.Document{}), docstore.ErrInvalidArgument)
	})
}
