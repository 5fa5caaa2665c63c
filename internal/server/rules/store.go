// Package rules enforces document access on the server. Store wraps the
// configured backend and checks every call against the caller found in
// the request context.
package rules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/server/auth"
)

// profileFields are the user document fields a user may change on their own
// profile.
var profileFields = []string{common.FieldName, common.FieldBio, common.FieldAvatarURL, common.FieldBannerID}

var roleFields = []string{common.FieldIsAdmin, common.FieldIsOwner, common.FieldIsBetaTester, common.FieldIsPremium}

// EmailResolver looks up the sign-in email of a user id.
type EmailResolver interface {
	Email(ctx context.Context, userID string) (string, error)
}

type Store struct {
	next       docstore.Store
	emails     EmailResolver
	ownerEmail string
	logger     logging.Logger
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store guarding next. The profile created by the identity
// whose email equals ownerEmail is stamped as owner and admin.
func New(next docstore.Store, emails EmailResolver, ownerEmail string, logger logging.Logger) *Store {
	return &Store{
		next:       next,
		emails:     emails,
		ownerEmail: strings.ToLower(strings.TrimSpace(ownerEmail)),
		logger:     logger,
	}
}

type role struct {
	admin bool
	owner bool
}

func (r role) staff() bool { return r.admin || r.owner }

func isItemCollection(collection string) bool {
	return slices.Contains(common.ItemCollections, collection)
}

func flag(d docstore.Document, field string) bool {
	b, _ := d[field].(bool)
	return b
}

func (s *Store) caller(ctx context.Context) (auth.Caller, error) {
	c, ok := auth.CallerFrom(ctx)
	if !ok {
		return auth.Caller{}, common.ErrorUnauthorized
	}
	return c, nil
}

// roleOf reads the caller's flags from their profile. A missing profile
// grants nothing.
func (s *Store) roleOf(ctx context.Context, userID string) (role, error) {
	doc, err := s.next.Read(ctx, common.CollectionUsers, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return role{}, nil
	}
	if err != nil {
		return role{}, err
	}
	return role{admin: flag(doc, common.FieldIsAdmin), owner: flag(doc, common.FieldIsOwner)}, nil
}

func (s *Store) deny(ctx context.Context, c auth.Caller, op, collection, id, reason string) error {
	s.logger.Warn(ctx, "access denied", "op", op, "collection", collection, "id", id, "uid", c.UserID, "reason", reason)
	return fmt.Errorf("%w: %s", common.ErrorForbidden, reason)
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return "", err
	}
	if !isItemCollection(collection) {
		return "", s.deny(ctx, c, "create", collection, "", "collection does not accept generated ids")
	}
	if owner, _ := fields[common.FieldOwnerID].(string); owner != c.UserID {
		return "", s.deny(ctx, c, "create", collection, "", "ownerId must be the caller")
	}
	return s.next.Create(ctx, collection, fields)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Document) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}

	if collection == common.CollectionUsers {
		return s.createProfile(ctx, c, id, fields)
	}
	if !isItemCollection(collection) {
		return s.deny(ctx, c, "set", collection, id, "unknown collection")
	}

	if owner, _ := fields[common.FieldOwnerID].(string); owner != c.UserID {
		return s.deny(ctx, c, "set", collection, id, "ownerId must be the caller")
	}
	existing, err := s.next.Read(ctx, collection, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
	case err != nil:
		return err
	case existing[common.FieldOwnerID] != c.UserID:
		return s.deny(ctx, c, "set", collection, id, "document belongs to another user")
	}
	return s.next.Set(ctx, collection, id, fields)
}

// createProfile admits a user's first profile write. Role flags must be
// absent or false; the owner identity gets both staff flags stamped.
func (s *Store) createProfile(ctx context.Context, c auth.Caller, id string, fields docstore.Document) error {
	if id != c.UserID {
		return s.deny(ctx, c, "set", common.CollectionUsers, id, "profile belongs to another user")
	}
	_, err := s.next.Read(ctx, common.CollectionUsers, id)
	if err == nil {
		return s.deny(ctx, c, "set", common.CollectionUsers, id, "profile already exists")
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	for _, f := range roleFields {
		if flag(fields, f) {
			return s.deny(ctx, c, "set", common.CollectionUsers, id, f+" cannot be set")
		}
	}

	email, err := s.emails.Email(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("resolve caller email: %w", err)
	}

	profile := docstore.Clone(fields)
	if profile == nil {
		profile = docstore.Document{}
	}
	profile[common.FieldEmail] = email
	if s.ownerEmail != "" && email == s.ownerEmail {
		profile[common.FieldIsOwner] = true
		profile[common.FieldIsAdmin] = true
		s.logger.Info(ctx, "owner profile created", "uid", c.UserID)
	}
	return s.next.Set(ctx, common.CollectionUsers, id, profile)
}

func (s *Store) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if collection != common.CollectionUsers && !isItemCollection(collection) {
		return nil, s.deny(ctx, c, "read", collection, id, "unknown collection")
	}

	doc, err := s.next.Read(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if collection == common.CollectionUsers && id == c.UserID {
		return doc, nil
	}
	if isItemCollection(collection) && doc[common.FieldOwnerID] == c.UserID {
		return doc, nil
	}

	r, err := s.roleOf(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if !r.staff() {
		return nil, s.deny(ctx, c, "read", collection, id, "not the owner")
	}
	return doc, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}

	if collection == common.CollectionUsers {
		return s.updateProfile(ctx, c, id, partial)
	}
	if !isItemCollection(collection) {
		return s.deny(ctx, c, "update", collection, id, "unknown collection")
	}

	if owner, ok := partial[common.FieldOwnerID]; ok && owner != c.UserID {
		return s.deny(ctx, c, "update", collection, id, "ownerId is immutable")
	}
	doc, err := s.next.Read(ctx, collection, id)
	if err != nil {
		return err
	}
	if doc[common.FieldOwnerID] != c.UserID {
		return s.deny(ctx, c, "update", collection, id, "not the owner")
	}
	return s.next.Update(ctx, collection, id, partial)
}

// updateProfile lets users edit their display fields and lets the owner
// toggle isAdmin on other accounts.
func (s *Store) updateProfile(ctx context.Context, c auth.Caller, id string, partial docstore.Document) error {
	if id == c.UserID {
		for k := range partial {
			if !slices.Contains(profileFields, k) {
				return s.deny(ctx, c, "update", common.CollectionUsers, id, k+" is not a profile field")
			}
		}
		return s.next.Update(ctx, common.CollectionUsers, id, partial)
	}

	for k := range partial {
		if k != common.FieldIsAdmin {
			return s.deny(ctx, c, "update", common.CollectionUsers, id, "only isAdmin may change on another profile")
		}
	}
	if _, ok := partial[common.FieldIsAdmin].(bool); !ok {
		return s.deny(ctx, c, "update", common.CollectionUsers, id, "isAdmin must be a bool")
	}

	r, err := s.roleOf(ctx, c.UserID)
	if err != nil {
		return err
	}
	if !r.owner {
		return s.deny(ctx, c, "update", common.CollectionUsers, id, "only the owner may change isAdmin")
	}
	target, err := s.next.Read(ctx, common.CollectionUsers, id)
	if err != nil {
		return err
	}
	if flag(target, common.FieldIsOwner) {
		return s.deny(ctx, c, "update", common.CollectionUsers, id, "owner accounts are immutable")
	}
	return s.next.Update(ctx, common.CollectionUsers, id, partial)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if collection != common.CollectionUsers && !isItemCollection(collection) {
		return s.deny(ctx, c, "delete", collection, id, "unknown collection")
	}
	if collection == common.CollectionUsers && id == c.UserID {
		return s.next.Delete(ctx, collection, id)
	}

	doc, err := s.next.Read(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if isItemCollection(collection) && doc[common.FieldOwnerID] == c.UserID {
		return s.next.Delete(ctx, collection, id)
	}

	r, err := s.roleOf(ctx, c.UserID)
	if err != nil {
		return err
	}
	if !r.staff() {
		return s.deny(ctx, c, "delete", collection, id, "not the owner")
	}
	if collection == common.CollectionUsers && flag(doc, common.FieldIsOwner) {
		return s.deny(ctx, c, "delete", collection, id, "owner accounts are immutable")
	}
	return s.next.Delete(ctx, collection, id)
}

func (s *Store) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if collection != common.CollectionUsers && !isItemCollection(collection) {
		return nil, s.deny(ctx, c, "scan", collection, "", "unknown collection")
	}
	if isItemCollection(collection) && f != nil && f.Field == common.FieldOwnerID && f.Value == c.UserID {
		return s.next.Scan(ctx, collection, f)
	}

	r, err := s.roleOf(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if !r.staff() {
		return nil, s.deny(ctx, c, "scan", collection, "", "unfiltered scans need staff")
	}
	return s.next.Scan(ctx, collection, f)
}
