package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/client/services"
)

const adminUsage = "admin users|links|notes|todos|images | admin grant|revoke <user-id> | admin delete <collection> <id>"

func listAll[T models.Item](a *App, items []T, err error) error {
	if err != nil {
		return a.report(err)
	}
	for _, it := range items {
		a.printf("[%s] ", it.ItemOwner())
		a.printItem(it)
	}
	a.printf("%d total\n", len(items))
	return nil
}

// Admin runs the admin console commands.
func (a *App) Admin(ctx context.Context, args []string) error {
	if !a.accounts.CanActAsAdmin() {
		return a.report(fmt.Errorf("%w: admin rights required", services.ErrForbidden))
	}
	if len(args) == 0 {
		a.println("Usage: " + adminUsage)
		return nil
	}

	switch args[0] {
	case "users":
		return a.adminUsers(ctx)
	case "links":
		items, err := a.accounts.LoadAllLinks(ctx)
		return listAll(a, items, err)
	case "notes":
		items, err := a.accounts.LoadAllNotes(ctx)
		return listAll(a, items, err)
	case "todos":
		items, err := a.accounts.LoadAllTodos(ctx)
		return listAll(a, items, err)
	case "images":
		items, err := a.accounts.LoadAllImages(ctx)
		return listAll(a, items, err)
	case "grant", "revoke":
		if len(args) != 2 {
			break
		}
		return a.setAdmin(ctx, args[1], args[0] == "grant")
	case "delete":
		if len(args) != 3 {
			break
		}
		if err := a.accounts.AdminDelete(ctx, args[1], args[2]); err != nil {
			return a.report(err)
		}
		a.println("Deleted.")
		return nil
	}
	a.println("Usage: " + adminUsage)
	return nil
}

func (a *App) adminUsers(ctx context.Context) error {
	users, err := a.accounts.LoadAllUsers(ctx)
	if err != nil {
		return a.report(err)
	}
	for _, u := range users {
		role := ""
		switch {
		case u.IsOwner:
			role = "owner"
		case u.IsAdmin:
			role = "admin"
		}
		a.printf("%s  %-30s %-20s %s\n", u.ID, u.Email, u.Name, role)
	}
	a.printf("%d total\n", len(users))
	return nil
}

func (a *App) setAdmin(ctx context.Context, uid string, value bool) error {
	users, err := a.accounts.LoadAllUsers(ctx)
	if err != nil {
		return a.report(err)
	}
	for _, u := range users {
		if u.ID != uid {
			continue
		}
		if err := a.accounts.SetAdminFlag(ctx, u, value); err != nil {
			return a.report(err)
		}
		a.println("Admin rights updated.")
		return nil
	}
	return a.report(fmt.Errorf("%w: no user %s", services.ErrValidation, uid))
}
