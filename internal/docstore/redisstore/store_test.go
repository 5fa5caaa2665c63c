package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/docstore/storetest"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests need a disposable Redis; the database is flushed.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LINKSTASH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LINKSTASH_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(ctx)
		_ = client.Close()
	})
	return client
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return NewStore(redisClient(t)) })
}

func TestStore_ValueIsCBOR(t *testing.T) {
	client := redisClient(t)
	s := NewStore(client)
	ctx := context.Background()

	id, err := s.Create(ctx, "notes", docstore.Document{"name": "n"})
	require.NoError(t, err)

	raw, err := client.Get(ctx, docKey("notes", id)).Bytes()
	require.NoError(t, err)
	doc, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "n", doc["name"])

	n, err := client.ZCard(ctx, indexKey("notes")).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "doc:links:abc", docKey("links", "abc"))
	assert.Equal(t, "docs:links", indexKey("links"))
	assert.Equal(t, "seq:links", seqKey("links"))
}

func TestEncodeDecode_NumbersBecomeFloat(t *testing.T) {
	b, err := encode(docstore.Document{"count": 3, "tasks": []any{map[string]any{"completed": true}}})
	require.NoError(t, err)

	doc, err := decode(b)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{
		"count": float64(3),
		"tasks": []any{map[string]any{"completed": true}},
	}, doc)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := decode([]byte{0xff})
	assert.ErrorContains(t, err, "decode document")
}

func TestInvalidKeysNeedNoServer(t *testing.T) {
	s := NewStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	_, err := s.Read(context.Background(), "links", "")
	assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
	_, err = s.Scan(context.Background(), "", nil)
	assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
}
