package services

import (
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
)

// Authorizer decides whether the session may mutate an item.
type Authorizer interface {
	CanMutate(s *Session, kind models.Kind, id string) error
}

// OwnerAuthorizer allows mutations of items that are in the session mirror
// and owned by the signed-in user.
type OwnerAuthorizer struct{}

func (OwnerAuthorizer) CanMutate(s *Session, kind models.Kind, id string) error {
	uid := s.UserID()
	if uid == "" {
		return ErrNotSignedIn
	}

	var (
		item  models.Item
		found bool
	)
	s.view(func(m *Mirror) { item, found = m.Find(kind, id) })

	if !found {
		return fmt.Errorf("%w: %s %s is not in this session", ErrForbidden, kind, id)
	}
	if item.ItemOwner() != uid {
		return fmt.Errorf("%w: %s %s belongs to another user", ErrForbidden, kind, id)
	}
	return nil
}
