package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/docstore"
)

// Document converts v into a store document. The id is not part of the
// document.
func Document(v any) (docstore.Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	d := docstore.Document{}
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return d, nil
}

// Decode builds a T from the document stored under id. Fields missing from
// the document keep their zero values.
func Decode[T any, P interface {
	*T
	SetID(string)
}](id string, d docstore.Document) (T, error) {
	var v T
	b, err := json.Marshal(d)
	if err != nil {
		return v, fmt.Errorf("decode %s: %w", id, err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", id, err)
	}
	P(&v).SetID(id)
	return v, nil
}

// Apply returns a copy of v with partial merged over its top-level fields.
func Apply[T any, P interface {
	*T
	SetID(string)
}](v T, id string, partial docstore.Document) (T, error) {
	d, err := Document(v)
	if err != nil {
		return v, err
	}
	norm, err := docstore.Normalize(partial)
	if err != nil {
		return v, err
	}
	docstore.Merge(d, norm)
	return Decode[T, P](id, d)
}
