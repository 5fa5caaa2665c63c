// Package redisstore keeps documents in Redis. Each document is a CBOR value
// under doc:<collection>:<id>; the sorted set docs:<collection> lists ids
// scored by a per-collection creation counter kept in seq:<collection>.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/codec"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const maxUpdateAttempts = 5

var ErrConflict = errors.New("document changed concurrently")

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func docKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

func indexKey(collection string) string {
	return fmt.Sprintf("docs:%s", collection)
}

func seqKey(collection string) string {
	return fmt.Sprintf("seq:%s", collection)
}

func encode(d docstore.Document) ([]byte, error) {
	doc, err := docstore.Normalize(d)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(doc)
}

func decode(data []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	// cbor integers decode as int64/uint64
	return docstore.Normalize(doc)
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Document) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}
	data, err := encode(fields)
	if err != nil {
		return err
	}

	seq, err := s.client.Incr(ctx, seqKey(collection)).Result()
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(collection, id), data, 0)
		// NX keeps the original position when a document is replaced
		pipe.ZAddNX(ctx, indexKey(collection), &redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	return err
}

func (s *Store) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckKey(collection, id); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, docKey(collection, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return decode(data)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}
	patch, err := docstore.Normalize(partial)
	if err != nil {
		return err
	}

	key := docKey(collection, id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return docstore.ErrNotFound
			}
			return err
		}
		doc, err := decode(data)
		if err != nil {
			return err
		}
		docstore.Merge(doc, patch)
		merged, err := encode(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docKey(collection, id))
		pipe.ZRem(ctx, indexKey(collection), id)
		return nil
	})
	return err
}

func (s *Store) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", docstore.ErrInvalidArgument)
	}

	ids, err := s.client.ZRange(ctx, indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := []docstore.Record{}
	if len(ids) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, docKey(collection, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		doc, err := decode(data)
		if err != nil {
			return nil, err
		}
		if docstore.Matches(doc, f) {
			out = append(out, docstore.Record{ID: ids[i], Data: doc})
		}
	}
	return out, nil
}
