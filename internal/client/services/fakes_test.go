package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

/*************
 * Store that counts calls and fails on demand
 *************/

type spyStore struct {
	docstore.Store

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newSpyStore() *spyStore {
	return &spyStore{Store: docstore.NewMemoryStore(), calls: map[string]int{}, fail: map[string]error{}}
}

func (s *spyStore) hit(op, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err, ok := s.fail[op+":"+collection]; ok {
		return err
	}
	return s.fail[op]
}

func (s *spyStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *spyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *spyStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *spyStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
	s.fail = map[string]error{}
}

func (s *spyStore) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	if err := s.hit("create", collection); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, collection, fields)
}

func (s *spyStore) Set(ctx context.Context, collection, id string, fields docstore.Document) error {
	if err := s.hit("set", collection); err != nil {
		return err
	}
	return s.Store.Set(ctx, collection, id, fields)
}

func (s *spyStore) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := s.hit("read", collection); err != nil {
		return nil, err
	}
	return s.Store.Read(ctx, collection, id)
}

func (s *spyStore) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	if err := s.hit("update", collection); err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, id, partial)
}

func (s *spyStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.hit("delete", collection); err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *spyStore) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	if err := s.hit("scan", collection); err != nil {
		return nil, err
	}
	return s.Store.Scan(ctx, collection, f)
}

/*************
 * Gateway keeping accounts in memory
 *************/

type fakeGateway struct {
	gateway.Notifier

	mu        sync.Mutex
	passwords map[string]string
	uids      map[string]string
	current   *gateway.Identity
	codes     map[string]string

	deleteErr error
	deleted   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{passwords: map[string]string{}, uids: map[string]string{}, codes: map[string]string{}}
}

func authErr(code common.AuthCode) error { return common.NewAuthError(code) }

func (g *fakeGateway) set(id *gateway.Identity) {
	g.mu.Lock()
	g.current = id
	g.mu.Unlock()
	g.Notify(id)
}

func (g *fakeGateway) Authenticate(_ context.Context, email, password string) (*gateway.Identity, error) {
	g.mu.Lock()
	pw, ok := g.passwords[email]
	uid := g.uids[email]
	g.mu.Unlock()
	if !ok {
		return nil, authErr(common.CodeUserNotFound)
	}
	if pw != password {
		return nil, authErr(common.CodeWrongPassword)
	}
	id := &gateway.Identity{UID: uid, Email: email, CreatedAt: testNow}
	g.set(id)
	return id, nil
}

func (g *fakeGateway) CreateIdentity(_ context.Context, email, password string) (*gateway.Identity, error) {
	if len(password) < 6 {
		return nil, authErr(common.CodeWeakPassword)
	}
	g.mu.Lock()
	if _, ok := g.passwords[email]; ok {
		g.mu.Unlock()
		return nil, authErr(common.CodeEmailAlreadyInUse)
	}
	uid := fmt.Sprintf("uid-%d", len(g.uids)+1)
	g.passwords[email] = password
	g.uids[email] = uid
	g.mu.Unlock()

	id := &gateway.Identity{UID: uid, Email: email, CreatedAt: testNow}
	g.set(id)
	return id, nil
}

func (g *fakeGateway) SignOut(context.Context) error {
	g.set(nil)
	return nil
}

func (g *fakeGateway) SendPasswordResetEmail(_ context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.passwords[email]; ok {
		g.codes["code-"+email] = email
	}
	return nil
}

func (g *fakeGateway) VerifyResetCode(_ context.Context, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	email, ok := g.codes[code]
	if !ok {
		return "", authErr(common.CodeInvalidResetCode)
	}
	return email, nil
}

func (g *fakeGateway) ConfirmPasswordReset(_ context.Context, code, newPassword string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	email, ok := g.codes[code]
	if !ok {
		return authErr(common.CodeInvalidResetCode)
	}
	g.passwords[email] = newPassword
	delete(g.codes, code)
	return nil
}

func (g *fakeGateway) Reauthenticate(_ context.Context, currentPassword string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return common.ErrorUnauthorized
	}
	if g.passwords[g.current.Email] != currentPassword {
		return authErr(common.CodeWrongPassword)
	}
	return nil
}

func (g *fakeGateway) UpdatePassword(_ context.Context, newPassword string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return common.ErrorUnauthorized
	}
	if len(newPassword) < 6 {
		return authErr(common.CodeWeakPassword)
	}
	g.passwords[g.current.Email] = newPassword
	return nil
}

func (g *fakeGateway) DeleteIdentity(context.Context) error {
	g.mu.Lock()
	if g.deleteErr != nil {
		err := g.deleteErr
		g.mu.Unlock()
		return err
	}
	if g.current == nil {
		g.mu.Unlock()
		return common.ErrorUnauthorized
	}
	email := g.current.Email
	g.deleted = append(g.deleted, g.current.UID)
	delete(g.passwords, email)
	delete(g.uids, email)
	g.mu.Unlock()

	g.set(nil)
	return nil
}

func (g *fakeGateway) OnIdentityChange(fn func(*gateway.Identity)) func() {
	return g.Subscribe(fn)
}

/*************
 * Fixtures
 *************/

func newItemStore(t *testing.T) (*ItemStore, *spyStore) {
	t.Helper()
	store := newSpyStore()
	items := NewItemStore(store, NewSession(), nil, logging.Discard())
	items.clock = func() time.Time { return testNow }
	return items, store
}

func signInAs(s *Session, uid string) {
	s.start(gateway.Identity{UID: uid, Email: uid + "@example.com"}, models.User{ID: uid, Email: uid + "@example.com"})
}

// seed writes a document directly to the backing store.
func seed(t *testing.T, store *spyStore, collection string, doc docstore.Document) string {
	t.Helper()
	id, err := store.Store.Create(context.Background(), collection, doc)
	require.NoError(t, err)
	return id
}

var errBoom = errors.New("boom")
