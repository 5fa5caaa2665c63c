// Package blobs wraps a docstore.Store and moves large string fields (image
// payloads) into object storage. The document keeps a "blob:<key>" reference
// in place of the payload; reads put the payload back.
package blobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock_storage_test.go -package=blobs . ObjectStorage

const refPrefix = "blob:"

var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the subset of an S3 bucket the decorator needs.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Field names a (collection, field) pair whose values are offloaded.
type Field struct {
	Collection string
	Name       string
}

// ImageData is the field offloaded by default.
var ImageData = Field{Collection: common.CollectionImages, Name: "imageData"}

type Store struct {
	next    docstore.Store
	objects ObjectStorage
	fields  map[string][]string
	logger  logging.Logger
	newKey  func(collection string) string
}

func New(next docstore.Store, objects ObjectStorage, logger logging.Logger, fields ...Field) *Store {
	if len(fields) == 0 {
		fields = []Field{ImageData}
	}
	s := &Store{
		next:    next,
		objects: objects,
		fields:  map[string][]string{},
		logger:  logger,
		newKey:  storageKey,
	}
	for _, f := range fields {
		s.fields[f.Collection] = append(s.fields[f.Collection], f.Name)
	}
	return s
}

func storageKey(collection string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/%d/%d/%d/%v", collection, d.Year(), d.Month(), d.Day(), uuid.New())
}

func refKey(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, refPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s, refPrefix), true
}

// contentType reads the MIME type from a data URL, if any.
func contentType(payload string) string {
	rest, ok := strings.CutPrefix(payload, "data:")
	if !ok {
		return "application/octet-stream"
	}
	mt, _, _ := strings.Cut(rest, ";")
	if mt == "" {
		return "application/octet-stream"
	}
	return mt
}

// offload uploads the configured fields of d and swaps them for references.
// A reference is only accepted when prev already holds it for the same field.
// It returns the uploaded keys so the caller can undo the uploads.
func (s *Store) offload(ctx context.Context, collection string, d, prev docstore.Document) (docstore.Document, []string, error) {
	names := s.fields[collection]
	if len(names) == 0 {
		return d, nil, nil
	}

	out := docstore.Clone(d)
	var uploaded []string
	for _, name := range names {
		payload, ok := out[name].(string)
		if !ok || payload == "" {
			continue
		}
		if _, isRef := refKey(payload); isRef {
			if prev[name] == payload {
				continue
			}
			s.discard(ctx, uploaded)
			return nil, nil, fmt.Errorf("%w: %s.%s holds a storage reference", docstore.ErrInvalidArgument, collection, name)
		}
		key := s.newKey(collection)
		if err := s.objects.Put(ctx, key, []byte(payload), contentType(payload)); err != nil {
			s.discard(ctx, uploaded)
			return nil, nil, fmt.Errorf("upload %s.%s: %w", collection, name, err)
		}
		uploaded = append(uploaded, key)
		out[name] = refPrefix + key
	}
	return out, uploaded, nil
}

func (s *Store) restore(ctx context.Context, collection string, d docstore.Document) error {
	for _, name := range s.fields[collection] {
		key, ok := refKey(d[name])
		if !ok {
			continue
		}
		body, err := s.objects.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("download %s.%s: %w", collection, name, err)
		}
		d[name] = string(body)
	}
	return nil
}

// refs lists the object keys d points at.
func (s *Store) refs(collection string, d docstore.Document) []string {
	var keys []string
	for _, name := range s.fields[collection] {
		if key, ok := refKey(d[name]); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// discard removes objects that are no longer referenced. Failures leave an
// orphaned object behind and are only logged.
func (s *Store) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			s.logger.Warn(ctx, "failed to delete object", "key", key, "error", err)
		}
	}
}

// current returns the stored (unrestored) document or nil when missing.
func (s *Store) current(ctx context.Context, collection, id string) (docstore.Document, error) {
	if len(s.fields[collection]) == 0 {
		return nil, nil
	}
	d, err := s.next.Read(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	return d, err
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	doc, uploaded, err := s.offload(ctx, collection, fields, nil)
	if err != nil {
		return "", err
	}
	id, err := s.next.Create(ctx, collection, doc)
	if err != nil {
		s.discard(ctx, uploaded)
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Document) error {
	old, err := s.current(ctx, collection, id)
	if err != nil {
		return err
	}
	doc, uploaded, err := s.offload(ctx, collection, fields, old)
	if err != nil {
		return err
	}
	if err := s.next.Set(ctx, collection, id, doc); err != nil {
		s.discard(ctx, uploaded)
		return err
	}
	s.discard(ctx, stale(s.refs(collection, old), s.refs(collection, doc)))
	return nil
}

func (s *Store) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	d, err := s.next.Read(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := s.restore(ctx, collection, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	old, err := s.current(ctx, collection, id)
	if err != nil {
		return err
	}
	patch, uploaded, err := s.offload(ctx, collection, partial, old)
	if err != nil {
		return err
	}
	if err := s.next.Update(ctx, collection, id, patch); err != nil {
		s.discard(ctx, uploaded)
		return err
	}

	var replaced []string
	for _, name := range s.fields[collection] {
		if _, touched := patch[name]; !touched {
			continue
		}
		if key, ok := refKey(old[name]); ok && patch[name] != refPrefix+key {
			replaced = append(replaced, key)
		}
	}
	s.discard(ctx, replaced)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	old, err := s.current(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.next.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.discard(ctx, s.refs(collection, old))
	return nil
}

func (s *Store) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	recs, err := s.next.Scan(ctx, collection, f)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if err := s.restore(ctx, collection, r.Data); err != nil {
			// the record is returned with its reference in place
			s.logger.Warn(ctx, "failed to restore document", "collection", collection, "id", r.ID, "error", err)
		}
	}
	return recs, nil
}

func stale(before, after []string) []string {
	keep := map[string]bool{}
	for _, k := range after {
		keep[k] = true
	}
	var out []string
	for _, k := range before {
		if !keep[k] {
			out = append(out, k)
		}
	}
	return out
}
