// Package postgres stores documents in a single jsonb table. The schema is
// created by the server migrations:
//
//	documents(seq bigserial, collection text, id text, data jsonb, created_at timestamptz)
//
// with (collection, id) unique and seq giving creation order.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/google/uuid"
)

type Store struct {
	db dbx.DBTX
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

func encode(d docstore.Document) (string, error) {
	doc, err := docstore.Normalize(d)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(b []byte) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	id := uuid.NewString()
	if err := docstore.CheckKey(collection, id); err != nil {
		return "", err
	}
	data, err := encode(fields)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, data); err != nil {
		return "", fmt.Errorf("db error: %w", err)
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

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckKey(collection, id); err != nil {
		return nil, err
	}

	query := `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decode(raw)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}
	patch, err := encode(partial)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb
		WHERE collection = $1 AND id = $2
	`
	res, err := s.db.ExecContext(ctx, query, collection, id, patch)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}

	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", docstore.ErrInvalidArgument)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if f == nil {
		query := `
			SELECT id, data
			FROM documents
			WHERE collection = $1
			ORDER BY seq
		`
		rows, err = s.db.QueryContext(ctx, query, collection)
	} else {
		// containment only matches string values
		query := `
			SELECT id, data
			FROM documents
			WHERE collection = $1 AND data @> jsonb_build_object($2::text, $3::text)
			ORDER BY seq
		`
		rows, err = s.db.QueryContext(ctx, query, collection, f.Field, f.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []docstore.Record{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Record{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
