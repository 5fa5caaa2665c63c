package models

import (
	"fmt"
	"net/url"
	"slices"
	"time"
)

// ProfileFields are the user-editable parts of a profile.
type ProfileFields struct {
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	BannerID  string `json:"bannerId,omitempty"`
}

// RoleFlags are set by the server and by the owner only.
type RoleFlags struct {
	IsAdmin      bool `json:"isAdmin"`
	IsOwner      bool `json:"isOwner"`
	IsBetaTester bool `json:"isBetaTester"`
	IsPremium    bool `json:"isPremium"`
}

// User is a profile document keyed by the identity's uid.
type User struct {
	ID        string    `json:"-"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	ProfileFields
	RoleFlags
}

func (u *User) SetID(id string) { u.ID = id }

// Staff reports whether u may use the admin console.
func (u User) Staff() bool { return u.IsAdmin || u.IsOwner }

// ProfileUpdate is a partial profile change. Nil fields are left alone.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	BannerID  *string
}

// Fields returns the document fields the update sets.
func (p ProfileUpdate) Fields() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Bio != nil {
		out["bio"] = *p.Bio
	}
	if p.AvatarURL != nil {
		out["avatarUrl"] = *p.AvatarURL
	}
	if p.BannerID != nil {
		out["bannerId"] = *p.BannerID
	}
	return out
}

func (p ProfileUpdate) Validate() error {
	if p.Name != nil {
		if err := required("name", *p.Name); err != nil {
			return err
		}
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		if err := ValidateURL(*p.AvatarURL); err != nil {
			return err
		}
	}
	if p.BannerID != nil && !ValidBanner(*p.BannerID) {
		return fmt.Errorf("%w: unknown banner %q", ErrValidation, *p.BannerID)
	}
	return nil
}

// Banners lists the selectable profile banners.
var Banners = []string{"purple", "blue", "emerald", "rose", "amber", "mostade", "black", "white"}

const DefaultBanner = "purple"

func ValidBanner(id string) bool {
	return slices.Contains(Banners, id)
}

// DefaultAvatarURL returns a generated initials avatar for name.
func DefaultAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=7c3aed&color=fff"
}

// NewUser returns the profile written at registration.
func NewUser(id, name, email string, now time.Time) User {
	return User{
		ID:        id,
		Email:     email,
		CreatedAt: now.UTC(),
		ProfileFields: ProfileFields{
			Name:      name,
			AvatarURL: DefaultAvatarURL(name),
			BannerID:  DefaultBanner,
		},
	}
}
