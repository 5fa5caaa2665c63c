// Package docstore defines the schemaless document store the rest of
// LinkStash persists through, plus an in-memory implementation.
//
// A store is organised in named collections. Every document is a
// JSON-shaped map (strings, float64 numbers, bools, nil, []any and
// map[string]any) identified by a string id that is unique within its
// collection. Scans return documents in creation order.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/common"
)

var (
	// ErrNotFound is returned by Read and Update for a missing document.
	ErrNotFound = common.ErrorNotFound

	ErrInvalidArgument = errors.New("invalid argument")
)

// Document is one stored record body.
type Document = map[string]any

// Record pairs a document with its id, as returned by Scan.
type Record struct {
	ID   string
	Data Document
}

// Filter selects documents whose Field holds the string Value.
type Filter struct {
	Field string
	Value string
}

func Eq(field, value string) *Filter {
	return &Filter{Field: field, Value: value}
}

// Store is implemented by every document backend.
type Store interface {
	// Create stores fields under a new id and returns the id.
	Create(ctx context.Context, collection string, fields Document) (string, error)
	// Set creates or fully replaces the document at id.
	Set(ctx context.Context, collection, id string, fields Document) error
	Read(ctx context.Context, collection, id string) (Document, error)
	// Update merges partial into the top level of an existing document.
	Update(ctx context.Context, collection, id string, partial Document) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Scan lists the collection, optionally restricted by f.
	Scan(ctx context.Context, collection string, f *Filter) ([]Record, error)
}

// Normalize converts d into its JSON-shaped equivalent: structs become
// maps, integers become float64, time.Time becomes an RFC 3339 string.
// The result shares no memory with d.
func Normalize(d Document) (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	out := Document{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return out, nil
}

// Clone deep-copies a JSON-shaped document.
func Clone(d Document) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return val
	}
}

// Merge applies partial onto dst at the top level.
func Merge(dst, partial Document) {
	for k, v := range partial {
		dst[k] = v
	}
}

// Matches reports whether d passes f. A nil filter matches everything.
func Matches(d Document, f *Filter) bool {
	if f == nil {
		return true
	}
	s, ok := d[f.Field].(string)
	return ok && s == f.Value
}

// CheckKey validates the collection and id arguments shared by every backend.
func CheckKey(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidArgument)
	}
	return nil
}
