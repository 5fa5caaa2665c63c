package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/client/services"
	"github.com/dmitrijs2005/linkstash/internal/common"
)

// Profile prints the signed-in user's profile and badges.
func (a *App) Profile(ctx context.Context) error {
	u, ok := a.accounts.Session().User()
	if !ok {
		return a.report(services.ErrNotSignedIn)
	}

	a.printf("Name:    %s\n", u.Name)
	a.printf("Email:   %s\n", u.Email)
	if u.Bio != "" {
		a.printf("Bio:     %s\n", u.Bio)
	}
	a.printf("Banner:  %s\n", u.BannerID)
	a.printf("Avatar:  %s\n", u.AvatarURL)
	if !u.CreatedAt.IsZero() {
		a.printf("Member since %s\n", u.CreatedAt.Format("2 January 2006"))
	}

	badges := models.Badges(u, a.now())
	if len(badges) > 0 {
		names := make([]string, 0, len(badges))
		for _, b := range badges {
			names = append(names, string(b))
		}
		a.printf("Badges:  %s\n", strings.Join(names, ", "))
	}
	return nil
}

// EditProfile prompts for name, bio, avatarUrl or bannerId changes.
func (a *App) EditProfile(ctx context.Context) error {
	fields, err := GetFields(a.reader, "Profile fields to change (name, bio, avatarUrl, bannerId: "+strings.Join(models.Banners, "|")+")", a.out)
	if err != nil {
		return a.report(fmt.Errorf("%w: %v", services.ErrValidation, err))
	}

	var upd models.ProfileUpdate
	for name, value := range fields {
		v := value
		switch name {
		case common.FieldName:
			upd.Name = &v
		case common.FieldBio:
			upd.Bio = &v
		case common.FieldAvatarURL:
			upd.AvatarURL = &v
		case common.FieldBannerID:
			upd.BannerID = &v
		default:
			return a.report(fmt.Errorf("%w: %s cannot be changed here", services.ErrValidation, name))
		}
	}

	if err := a.accounts.UpdateProfile(ctx, upd); err != nil {
		return a.report(err)
	}
	a.println("Profile saved.")
	return nil
}

// ChangePassword asks for the current and the new password.
func (a *App) ChangePassword(ctx context.Context) error {
	current, err := a.password("Current password")
	if err != nil {
		return err
	}
	next, err := a.password("New password")
	if err != nil {
		return err
	}
	if err := a.accounts.ChangePassword(ctx, current, next); err != nil {
		return a.report(err)
	}
	a.println("Password changed.")
	return nil
}

// DeleteAccount deletes the profile and the identity after confirmation.
// When the server asks for a recent login the password is requested once
// and the deletion retried.
func (a *App) DeleteAccount(ctx context.Context) error {
	confirm, err := a.ask("Type DELETE to delete your account permanently")
	if err != nil {
		return err
	}
	if confirm != "DELETE" {
		a.println("Cancelled.")
		return nil
	}

	err = a.accounts.DeleteAccount(ctx)
	if code, ok := common.AuthCodeOf(err); ok && code == common.CodeRequiresRecentLogin {
		a.println(userMessage(err))
		password, pwErr := a.password("Enter password")
		if pwErr != nil {
			return pwErr
		}
		if err := a.accounts.Reauthenticate(ctx, password); err != nil {
			return a.report(err)
		}
		err = a.accounts.DeleteAccount(ctx)
	}
	if err != nil {
		return a.report(err)
	}
	a.println("Your account was deleted.")
	return nil
}
