package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
)

const (
	fieldID        = "id"
	fieldCardColor = "cardColor"
	fieldTasks     = "tasks"
)

// fields an update can never change
var immutableFields = []string{fieldID, common.FieldOwnerID, common.FieldCreatedAt}

type itemPtr[T any] interface {
	*T
	SetID(string)
}

// Collection is the store-backed set of one item kind for the session user.
type Collection[T models.Item, P itemPtr[T]] struct {
	kind    models.Kind
	store   docstore.Store
	session *Session
	auth    Authorizer
	logger  logging.Logger
	now     func() time.Time
	slot    func(*Mirror) *[]T
}

func newCollection[T models.Item, P itemPtr[T]](kind models.Kind, slot func(*Mirror) *[]T, s *ItemStore) *Collection[T, P] {
	return &Collection[T, P]{
		kind:    kind,
		store:   s.store,
		session: s.session,
		auth:    s.auth,
		logger:  s.logger.With("kind", string(kind)),
		now:     func() time.Time { return s.clock() },
		slot:    slot,
	}
}

func (c *Collection[T, P]) Kind() models.Kind { return c.kind }

// Items returns the mirrored items in load and insertion order.
func (c *Collection[T, P]) Items() []T {
	var out []T
	c.session.view(func(m *Mirror) { out = slices.Clone(*c.slot(m)) })
	return out
}

func (c *Collection[T, P]) find(id string) (T, int) {
	var (
		v T
		i = -1
	)
	c.session.view(func(m *Mirror) {
		items := *c.slot(m)
		i = slices.IndexFunc(items, func(it T) bool { return it.ItemID() == id })
		if i >= 0 {
			v = items[i]
		}
	})
	return v, i
}

// LoadAll replaces the mirror with the session user's items. When the scan
// fails the mirror is emptied and the error returned.
func (c *Collection[T, P]) LoadAll(ctx context.Context) ([]T, error) {
	uid := c.session.UserID()
	if uid == "" {
		return nil, ErrNotSignedIn
	}

	recs, err := c.store.Scan(ctx, c.kind.Collection(), docstore.Eq(common.FieldOwnerID, uid))
	if err != nil {
		c.session.editFor(uid, func(m *Mirror) { *c.slot(m) = nil })
		return []T{}, storeError(ctx, c.logger, "load "+c.kind.Collection(), err)
	}

	items := c.decodeAll(ctx, recs, uid)
	c.session.editFor(uid, func(m *Mirror) { *c.slot(m) = slices.Clone(items) })
	c.logger.Debug(ctx, "collection loaded", "count", len(items))
	return items, nil
}

// scanAll lists every item of the kind regardless of owner. The mirror is
// not touched.
func (c *Collection[T, P]) scanAll(ctx context.Context) ([]T, error) {
	recs, err := c.store.Scan(ctx, c.kind.Collection(), nil)
	if err != nil {
		return []T{}, storeError(ctx, c.logger, "scan "+c.kind.Collection(), err)
	}
	return c.decodeAll(ctx, recs, ""), nil
}

func (c *Collection[T, P]) decodeAll(ctx context.Context, recs []docstore.Record, owner string) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := models.Decode[T, P](r.ID, r.Data)
		if err != nil {
			c.logger.Warn(ctx, "skipping undecodable document", "id", r.ID, "error", err)
			continue
		}
		if owner != "" && v.ItemOwner() != owner {
			continue
		}
		out = append(out, v)
	}
	return out
}

// stamp turns v into the document written on Add.
func (c *Collection[T, P]) stamp(v T, uid string) (docstore.Document, error) {
	d, err := models.Document(v)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC().Format(time.RFC3339Nano)

	d[common.FieldOwnerID] = uid
	d[common.FieldCreatedAt] = now
	if c.kind.Tracked() {
		d[common.FieldUpdatedAt] = now
	}
	if color, _ := d[fieldCardColor].(string); color == "" {
		d[fieldCardColor] = common.DefaultCardColor
	}
	if c.kind == models.KindTodo && d[fieldTasks] == nil {
		d[fieldTasks] = []any{}
	}
	return d, nil
}

// Add validates v, writes it for the session user and appends it to the
// mirror. The owner, timestamps and card color defaults are filled in.
func (c *Collection[T, P]) Add(ctx context.Context, v T) (T, error) {
	var zero T

	uid := c.session.UserID()
	if uid == "" {
		return zero, ErrNotSignedIn
	}

	d, err := c.stamp(v, uid)
	if err != nil {
		return zero, err
	}
	item, err := models.Decode[T, P]("", d)
	if err != nil {
		return zero, err
	}
	if err := item.Validate(); err != nil {
		return zero, err
	}

	id, err := c.store.Create(ctx, c.kind.Collection(), d)
	if err != nil {
		return zero, storeError(ctx, c.logger, "add", err)
	}
	P(&item).SetID(id)

	c.session.editFor(uid, func(m *Mirror) { *c.slot(m) = append(*c.slot(m), item) })
	c.logger.Debug(ctx, "item added", "id", id)
	return item, nil
}

func (c *Collection[T, P]) authorize(ctx context.Context, op, id string) (string, error) {
	if err := c.auth.CanMutate(c.session, c.kind, id); err != nil {
		c.logger.Warn(ctx, "mutation refused", "op", op, "id", id, "error", err)
		return "", err
	}
	return c.session.UserID(), nil
}

// Update merges partial into the item both remotely and in the mirror.
// id, ownerId and createdAt are ignored; updatedAt is stamped on kinds that
// carry it.
func (c *Collection[T, P]) Update(ctx context.Context, id string, partial docstore.Document) error {
	uid, err := c.authorize(ctx, "update", id)
	if err != nil {
		return err
	}

	patch, err := docstore.Normalize(partial)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, f := range immutableFields {
		delete(patch, f)
	}
	if len(patch) == 0 {
		return nil
	}
	if c.kind.Tracked() {
		patch[common.FieldUpdatedAt] = c.now().UTC().Format(time.RFC3339Nano)
	}

	current, i := c.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s %s is not in this session", ErrForbidden, c.kind, id)
	}
	next, err := models.Apply[T, P](current, id, patch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	if err := c.store.Update(ctx, c.kind.Collection(), id, patch); err != nil {
		return storeError(ctx, c.logger, "update", err)
	}

	c.session.editFor(uid, func(m *Mirror) { replaceByID(*c.slot(m), next) })
	return nil
}

// Remove deletes the item remotely and drops it from the mirror.
func (c *Collection[T, P]) Remove(ctx context.Context, id string) error {
	uid, err := c.authorize(ctx, "remove", id)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, c.kind.Collection(), id); err != nil {
		return storeError(ctx, c.logger, "remove", err)
	}
	c.session.editFor(uid, func(m *Mirror) { c.drop(m, id) })
	c.logger.Debug(ctx, "item removed", "id", id)
	return nil
}

func (c *Collection[T, P]) drop(m *Mirror, id string) {
	*c.slot(m) = slices.DeleteFunc(*c.slot(m), func(it T) bool { return it.ItemID() == id })
}

func replaceByID[T models.Item](items []T, v T) {
	if i := slices.IndexFunc(items, func(it T) bool { return it.ItemID() == v.ItemID() }); i >= 0 {
		items[i] = v
	}
}
