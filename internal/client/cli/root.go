package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	user, ok := a.accounts.Session().User()
	if !ok {
		return ""
	}
	if user.Staff() {
		return fmt.Sprintf(" (%s, admin)", user.Email)
	}
	return fmt.Sprintf(" (%s)", user.Email)
}

// Root greets the user, checks the server and runs the REPL.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to LinkStash CLI (type 'help' for commands)")

	if a.server != nil {
		if err := a.server.Ping(ctx); err != nil {
			a.logger.Warn(ctx, "server ping failed", "error", err)
			a.println("Warning: the server is not reachable right now.")
		}
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
