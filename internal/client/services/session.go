package services

import (
	"iter"
	"slices"
	"sync"

	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/client/models"
)

type State int

const (
	SignedOut State = iota
	SignedIn
)

func (s State) String() string {
	if s == SignedIn {
		return "signed in"
	}
	return "signed out"
}

// Mirror is the in-memory copy of the signed-in user's items.
type Mirror struct {
	Links  []models.Link
	Notes  []models.Note
	Todos  []models.Todo
	Images []models.Image
}

func (m Mirror) clone() Mirror {
	return Mirror{
		Links:  slices.Clone(m.Links),
		Notes:  slices.Clone(m.Notes),
		Todos:  slices.Clone(m.Todos),
		Images: slices.Clone(m.Images),
	}
}

func (m Mirror) Len() int {
	return len(m.Links) + len(m.Notes) + len(m.Todos) + len(m.Images)
}

// All yields links, notes, todos and images in that order.
func (m Mirror) All() iter.Seq[models.Item] {
	return func(yield func(models.Item) bool) {
		_ = yieldAll(m.Links, yield) &&
			yieldAll(m.Notes, yield) &&
			yieldAll(m.Todos, yield) &&
			yieldAll(m.Images, yield)
	}
}

func yieldAll[T models.Item](items []T, yield func(models.Item) bool) bool {
	for _, it := range items {
		if !yield(it) {
			return false
		}
	}
	return true
}

// Find looks up the item of kind k with the given id.
func (m Mirror) Find(k models.Kind, id string) (models.Item, bool) {
	for it := range m.All() {
		if it.ItemKind() == k && it.ItemID() == id {
			return it, true
		}
	}
	return nil, false
}

// Session is the state of one signed-in user. The zero value is a
// signed-out session.
type Session struct {
	mu       sync.RWMutex
	state    State
	identity gateway.Identity
	user     models.User
	mirror   Mirror
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Identity() (gateway.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == SignedIn
}

// User returns the cached profile of the signed-in user.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.state == SignedIn
}

// UserID returns "" when signed out.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != SignedIn {
		return ""
	}
	return s.identity.UID
}

// Mirror returns a snapshot of the item mirror.
func (s *Session) Mirror() Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.clone()
}

func (s *Session) start(id gateway.Identity, u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SignedIn
	s.identity = id
	s.user = u
	s.mirror = Mirror{}
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SignedOut
	s.identity = gateway.Identity{}
	s.user = models.User{}
	s.mirror = Mirror{}
}

// setUser replaces the cached profile if uid is still signed in.
func (s *Session) setUser(uid string, u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SignedIn && s.identity.UID == uid {
		s.user = u
	}
}

func (s *Session) view(fn func(*Mirror)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.mirror)
}

// editFor applies fn to the mirror only while uid is the signed-in user, so
// a response arriving after sign-out never leaks into the next session.
func (s *Session) editFor(uid string, fn func(*Mirror)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SignedIn || s.identity.UID != uid {
		return false
	}
	fn(&s.mirror)
	return true
}
