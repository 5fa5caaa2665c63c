package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
)

// Accounts signs users in and out, edits their profile and runs the admin
// console operations. It drives the Session owned by its ItemStore.
type Accounts struct {
	gateway gateway.Gateway
	store   docstore.Store
	items   *ItemStore
	session *Session
	logger  logging.Logger
	now     func() time.Time
}

func NewAccounts(gw gateway.Gateway, store docstore.Store, items *ItemStore, logger logging.Logger) *Accounts {
	return &Accounts{
		gateway: gw,
		store:   store,
		items:   items,
		session: items.Session(),
		logger:  logger.With("module", "accounts"),
		now:     time.Now,
	}
}

func (a *Accounts) Session() *Session { return a.session }

func (a *Accounts) readProfile(ctx context.Context, uid string) (models.User, error) {
	doc, err := a.store.Read(ctx, common.CollectionUsers, uid)
	if err != nil {
		return models.User{}, err
	}
	return models.Decode[models.User, *models.User](uid, doc)
}

// SignIn authenticates and loads the profile and the four collections. An
// identity without a profile is signed out again and ErrProfileMissing is
// returned. Collections that fail to load are logged and left empty.
func (a *Accounts) SignIn(ctx context.Context, email, password string) error {
	id, err := a.gateway.Authenticate(ctx, email, password)
	if err != nil {
		a.logger.Info(ctx, "sign in refused", "error", err)
		return err
	}

	user, err := a.readProfile(ctx, id.UID)
	if err != nil {
		if signOutErr := a.gateway.SignOut(ctx); signOutErr != nil {
			a.logger.Warn(ctx, "sign out after failed profile read", "error", signOutErr)
		}
		if errors.Is(err, docstore.ErrNotFound) {
			a.logger.Error(ctx, "identity has no profile", "uid", id.UID)
			return ErrProfileMissing
		}
		return storeError(ctx, a.logger, "read profile", err)
	}

	a.session.start(*id, user)
	a.logger.Info(ctx, "signed in", "uid", id.UID)

	if err := a.items.LoadAll(ctx); err != nil {
		a.logger.Warn(ctx, "some collections failed to load", "error", err)
	}
	return nil
}

// Register creates the identity and its profile. When the profile cannot be
// written the identity is deleted again so no orphan is left behind.
func (a *Accounts) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	id, err := a.gateway.CreateIdentity(ctx, email, password)
	if err != nil {
		a.logger.Info(ctx, "registration refused", "error", err)
		return err
	}

	user := models.NewUser(id.UID, name, id.Email, a.now())
	doc, err := models.Document(user)
	if err == nil {
		err = a.store.Set(ctx, common.CollectionUsers, id.UID, doc)
	}
	if err != nil {
		storeErr := storeError(ctx, a.logger, "create profile", err)
		if rbErr := a.gateway.DeleteIdentity(ctx); rbErr != nil {
			a.logger.Error(ctx, "orphaned identity could not be removed", "uid", id.UID, "error", rbErr)
			return errors.Join(storeErr, rbErr)
		}
		a.logger.Info(ctx, "identity rolled back", "uid", id.UID)
		return storeErr
	}

	// re-read so server-stamped fields such as the owner flags are cached
	if stored, err := a.readProfile(ctx, id.UID); err == nil {
		user = stored
	}
	a.session.start(*id, user)
	a.logger.Info(ctx, "registered", "uid", id.UID)
	return nil
}

// SignOut ends the gateway session and clears the local one, even when the
// gateway call fails.
func (a *Accounts) SignOut(ctx context.Context) error {
	err := a.gateway.SignOut(ctx)
	a.session.clear()
	if err != nil {
		a.logger.Warn(ctx, "gateway sign out failed", "error", err)
	}
	return err
}

func (a *Accounts) signedIn() (models.User, error) {
	u, ok := a.session.User()
	if !ok {
		return models.User{}, ErrNotSignedIn
	}
	return u, nil
}

// UpdateProfile changes the display fields of the signed-in user.
func (a *Accounts) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	user, err := a.signedIn()
	if err != nil {
		return err
	}
	if err := upd.Validate(); err != nil {
		return err
	}
	fields := upd.Fields()
	if len(fields) == 0 {
		return nil
	}

	if err := a.store.Update(ctx, common.CollectionUsers, user.ID, fields); err != nil {
		return storeError(ctx, a.logger, "update profile", err)
	}

	next, err := models.Apply[models.User, *models.User](user, user.ID, fields)
	if err != nil {
		return err
	}
	a.session.setUser(user.ID, next)
	return nil
}

// Reauthenticate proves the current password again, as required before
// sensitive changes.
func (a *Accounts) Reauthenticate(ctx context.Context, currentPassword string) error {
	if _, err := a.signedIn(); err != nil {
		return err
	}
	return a.gateway.Reauthenticate(ctx, currentPassword)
}

// ChangePassword re-proves currentPassword and sets newPassword.
func (a *Accounts) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if _, err := a.signedIn(); err != nil {
		return err
	}
	if err := a.gateway.Reauthenticate(ctx, currentPassword); err != nil {
		a.logger.Info(ctx, "reauthentication refused", "error", err)
		return err
	}
	if err := a.gateway.UpdatePassword(ctx, newPassword); err != nil {
		a.logger.Info(ctx, "password change refused", "error", err)
		return err
	}
	return nil
}

// DeleteAccount removes the profile and then the identity. A
// requires-recent-login failure leaves the session signed in so the caller
// can Reauthenticate and retry.
//
// The profile is already gone when the identity deletion is refused, and an
// identity without a profile cannot sign in again. Callers should
// Reauthenticate before calling DeleteAccount and must finish the retry.
func (a *Accounts) DeleteAccount(ctx context.Context) error {
	user, err := a.signedIn()
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, common.CollectionUsers, user.ID); err != nil {
		return storeError(ctx, a.logger, "delete profile", err)
	}
	if err := a.gateway.DeleteIdentity(ctx); err != nil {
		a.logger.Warn(ctx, "identity deletion refused", "uid", user.ID, "error", err)
		return err
	}
	a.session.clear()
	a.logger.Info(ctx, "account deleted", "uid", user.ID)
	return nil
}

func (a *Accounts) SendPasswordReset(ctx context.Context, email string) error {
	return a.gateway.SendPasswordResetEmail(ctx, email)
}

// VerifyResetCode returns the email the code was issued for.
func (a *Accounts) VerifyResetCode(ctx context.Context, code string) (string, error) {
	return a.gateway.VerifyResetCode(ctx, code)
}

func (a *Accounts) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return a.gateway.ConfirmPasswordReset(ctx, code, newPassword)
}

// CanActAsAdmin reports whether the signed-in user may use the admin console.
func (a *Accounts) CanActAsAdmin() bool {
	u, ok := a.session.User()
	return ok && u.Staff()
}

// SetAdminFlag changes target's admin flag. Only an owner may do it, never
// on their own account or on another owner. These checks run before any
// remote call.
func (a *Accounts) SetAdminFlag(ctx context.Context, target models.User, value bool) error {
	actor, err := a.signedIn()
	if err != nil {
		return err
	}

	var reason string
	switch {
	case !actor.IsOwner:
		reason = "only the owner can change admin rights"
	case target.ID == actor.ID:
		reason = "cannot change your own admin rights"
	case target.IsOwner:
		reason = "cannot change the admin rights of an owner"
	}
	if reason != "" {
		a.logger.Warn(ctx, "admin flag change refused", "target", target.ID, "reason", reason)
		return fmt.Errorf("%w: %s", ErrForbidden, reason)
	}

	if err := a.store.Update(ctx, common.CollectionUsers, target.ID, docstore.Document{common.FieldIsAdmin: value}); err != nil {
		return storeError(ctx, a.logger, "set admin flag", err)
	}
	a.logger.Info(ctx, "admin flag changed", "target", target.ID, "value", value)
	return nil
}

// LoadAllUsers lists every profile. The store's access rules decide
// whether the caller may.
func (a *Accounts) LoadAllUsers(ctx context.Context) ([]models.User, error) {
	recs, err := a.store.Scan(ctx, common.CollectionUsers, nil)
	if err != nil {
		return []models.User{}, storeError(ctx, a.logger, "scan users", err)
	}
	out := make([]models.User, 0, len(recs))
	for _, r := range recs {
		u, err := models.Decode[models.User, *models.User](r.ID, r.Data)
		if err != nil {
			a.logger.Warn(ctx, "skipping undecodable profile", "id", r.ID, "error", err)
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (a *Accounts) LoadAllLinks(ctx context.Context) ([]models.Link, error) {
	return a.items.Links.scanAll(ctx)
}

func (a *Accounts) LoadAllNotes(ctx context.Context) ([]models.Note, error) {
	return a.items.Notes.scanAll(ctx)
}

func (a *Accounts) LoadAllTodos(ctx context.Context) ([]models.Todo, error) {
	return a.items.Todos.scanAll(ctx)
}

func (a *Accounts) LoadAllImages(ctx context.Context) ([]models.Image, error) {
	return a.items.Images.scanAll(ctx)
}

// AdminDelete removes any profile or item from the admin console.
// collection is users or one of the item collections.
func (a *Accounts) AdminDelete(ctx context.Context, collection, id string) error {
	if !a.CanActAsAdmin() {
		a.logger.Warn(ctx, "admin delete refused", "collection", collection, "id", id)
		return fmt.Errorf("%w: admin rights required", ErrForbidden)
	}

	var kind models.Kind
	if collection != common.CollectionUsers {
		for _, k := range models.Kinds {
			if k.Collection() == collection {
				kind = k
			}
		}
		if kind == "" {
			return fmt.Errorf("%w: unknown collection %q", ErrValidation, collection)
		}
	}

	if err := a.store.Delete(ctx, collection, id); err != nil {
		return storeError(ctx, a.logger, "admin delete", err)
	}
	if kind != "" {
		a.items.forget(kind, id)
	}
	a.logger.Info(ctx, "admin delete", "collection", collection, "id", id)
	return nil
}

// Watch clears the session when the gateway reports that the identity went
// away or changed. Call the returned func to stop watching.
func (a *Accounts) Watch() func() {
	return a.gateway.OnIdentityChange(func(id *gateway.Identity) {
		uid := a.session.UserID()
		if uid == "" {
			return
		}
		if id == nil || id.UID != uid {
			a.session.clear()
			a.logger.Info(context.Background(), "session ended by identity change", "uid", uid)
		}
	})
}
