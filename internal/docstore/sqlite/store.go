// Package sqlite is a single-file document store on the pure Go modernc
// SQLite driver. Documents are kept as JSON text; merges happen in Go inside
// a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/docstore/sqlite/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open opens (or creates) the database at dsn and applies migrations.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: sqlite has a single writer and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
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

func decode(raw string) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// jsonPath quotes field as a single object key for json_extract.
func jsonPath(field string) (string, error) {
	if field == "" || strings.Contains(field, `"`) {
		return "", fmt.Errorf("%w: filter field %q", docstore.ErrInvalidArgument, field)
	}
	return `$."` + field + `"`, nil
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

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func readTx(ctx context.Context, db dbx.DBTX, collection, id string) (docstore.Document, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decode(raw)
}

func (s *Store) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.CheckKey(collection, id); err != nil {
		return nil, err
	}
	return readTx(ctx, s.db, collection, id)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}
	patch, err := docstore.Normalize(partial)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		doc, err := readTx(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		docstore.Merge(doc, patch)
		data, err := encode(doc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET data = ? WHERE collection = ? AND id = ?`, data, collection, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.CheckKey(collection, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", docstore.ErrInvalidArgument)
	}

	query := `SELECT id, data FROM documents WHERE collection = ?`
	args := []any{collection}
	if f != nil {
		path, err := jsonPath(f.Field)
		if err != nil {
			return nil, err
		}
		query += ` AND json_type(data, ?) = 'text' AND json_extract(data, ?) = ?`
		args = append(args, path, path, f.Value)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []docstore.Record{}
	for rows.Next() {
		var id, raw string
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
