package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// ItemStore keeps the session mirror of all four item kinds in step with
// the document store.
type ItemStore struct {
	Links  *Collection[models.Link, *models.Link]
	Notes  *Collection[models.Note, *models.Note]
	Todos  *Todos
	Images *Collection[models.Image, *models.Image]

	store   docstore.Store
	session *Session
	auth    Authorizer
	logger  logging.Logger
	clock   func() time.Time
}

// NewItemStore builds the collections for session. A nil auth means
// OwnerAuthorizer.
func NewItemStore(store docstore.Store, session *Session, auth Authorizer, logger logging.Logger) *ItemStore {
	if auth == nil {
		auth = OwnerAuthorizer{}
	}
	s := &ItemStore{
		store:   store,
		session: session,
		auth:    auth,
		logger:  logger.With("module", "item_store"),
		clock:   time.Now,
	}
	s.build()
	return s
}

func (s *ItemStore) build() {
	s.Links = newCollection[models.Link, *models.Link](models.KindLink, func(m *Mirror) *[]models.Link { return &m.Links }, s)
	s.Notes = newCollection[models.Note, *models.Note](models.KindNote, func(m *Mirror) *[]models.Note { return &m.Notes }, s)
	s.Todos = &Todos{
		Collection: newCollection[models.Todo, *models.Todo](models.KindTodo, func(m *Mirror) *[]models.Todo { return &m.Todos }, s),
		Editor:     IndexTaskEditor{},
	}
	s.Images = newCollection[models.Image, *models.Image](models.KindImage, func(m *Mirror) *[]models.Image { return &m.Images }, s)
}

func (s *ItemStore) Session() *Session { return s.session }

// LoadAll reloads the four collections concurrently. Collections that fail
// are left empty; the returned error joins their failures.
func (s *ItemStore) LoadAll(ctx context.Context) error {
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error { _, err := s.Links.LoadAll(ctx); return err })
	p.Go(func(ctx context.Context) error { _, err := s.Notes.LoadAll(ctx); return err })
	p.Go(func(ctx context.Context) error { _, err := s.Todos.LoadAll(ctx); return err })
	p.Go(func(ctx context.Context) error { _, err := s.Images.LoadAll(ctx); return err })
	return p.Wait()
}

// Update dispatches to the collection of kind.
func (s *ItemStore) Update(ctx context.Context, kind models.Kind, id string, partial docstore.Document) error {
	switch kind {
	case models.KindLink:
		return s.Links.Update(ctx, id, partial)
	case models.KindNote:
		return s.Notes.Update(ctx, id, partial)
	case models.KindTodo:
		return s.Todos.Update(ctx, id, partial)
	case models.KindImage:
		return s.Images.Update(ctx, id, partial)
	}
	return fmt.Errorf("%w: unknown item kind %q", ErrValidation, kind)
}

// Remove dispatches to the collection of kind.
func (s *ItemStore) Remove(ctx context.Context, kind models.Kind, id string) error {
	switch kind {
	case models.KindLink:
		return s.Links.Remove(ctx, id)
	case models.KindNote:
		return s.Notes.Remove(ctx, id)
	case models.KindTodo:
		return s.Todos.Remove(ctx, id)
	case models.KindImage:
		return s.Images.Remove(ctx, id)
	}
	return fmt.Errorf("%w: unknown item kind %q", ErrValidation, kind)
}

// forget drops an item from the mirror without a remote call.
func (s *ItemStore) forget(kind models.Kind, id string) {
	uid := s.session.UserID()
	s.session.editFor(uid, func(m *Mirror) {
		switch kind {
		case models.KindLink:
			s.Links.drop(m, id)
		case models.KindNote:
			s.Notes.drop(m, id)
		case models.KindTodo:
			s.Todos.drop(m, id)
		case models.KindImage:
			s.Images.drop(m, id)
		}
	})
}

// Search runs Search over a snapshot of the mirror.
func (s *ItemStore) Search(query string, filter Filter) iter.Seq[models.Item] {
	return Search(s.session.Mirror(), query, filter)
}
