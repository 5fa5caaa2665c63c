package cli

import (
	"context"

	"github.com/dmitrijs2005/linkstash/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) password(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Register prompts for a display name, email and password and creates the
// account. The new user is signed in on success.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.password("Choose a password")
	if err != nil {
		return err
	}

	if err := a.accounts.Register(ctx, name, email, password); err != nil {
		return a.report(err)
	}
	a.println("Account created. Welcome, " + name + "!")
	return nil
}

// Login prompts for credentials, signs in and loads the user's items.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}

	if err := a.accounts.SignIn(ctx, email, password); err != nil {
		return a.report(err)
	}
	user, _ := a.accounts.Session().User()
	a.printf("Welcome back, %s! %d items loaded.\n", user.Name, a.accounts.Session().Mirror().Len())
	return nil
}

// ResetPassword runs the emailed reset code flow.
func (a *App) ResetPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter the email of your account", a.out)
	if err != nil {
		return err
	}
	if err := a.accounts.SendPasswordReset(ctx, email); err != nil {
		return a.report(err)
	}
	a.println("If an account exists for this email, a reset code was sent.")

	code, err := getSimpleText(a.reader, "Enter the reset code", a.out)
	if err != nil {
		return err
	}
	verified, err := a.accounts.VerifyResetCode(ctx, code)
	if err != nil {
		return a.report(err)
	}

	password, err := a.password("New password for " + verified)
	if err != nil {
		return err
	}
	if err := a.accounts.ConfirmPasswordReset(ctx, code, password); err != nil {
		return a.report(err)
	}
	a.println("Password changed. You can log in now.")
	return nil
}

// Logout ends the session and forgets the loaded items.
func (a *App) Logout(ctx context.Context) error {
	if err := a.accounts.SignOut(ctx); err != nil {
		a.logger.Warn(ctx, "sign out reported an error", "error", err)
	}
	a.println("Logged out.")
	return nil
}
