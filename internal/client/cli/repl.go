package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Logout(ctx context.Context) error

	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Add(ctx context.Context, kind models.Kind) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Task(ctx context.Context, args []string) error
	Reload(ctx context.Context) error

	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	DeleteAccount(ctx context.Context) error

	Admin(ctx context.Context, args []string) error
}

const (
	helpSignedOut = "Available commands: register, login, reset, exit"
	helpSignedIn  = `Available commands:
  (l)ist [kind]                  list items, optionally of one kind (link, note, todo, image)
  search <text>                  find items containing text
  addlink, addnote, addtodo, addimage
  edit <kind> <id>               change fields of an item
  delete <kind> <id>             delete an item
  task add <todo-id> <text>      append a task
  task rm|done|undo <todo-id> <n>
  reload                         reload items from the server
  profile, editprofile, passwd, deleteaccount
  admin users|links|notes|todos|images
  admin grant|revoke <user-id>
  admin delete <collection> <id>
  logout, exit`
)

// runREPL starts a simple read–eval–print loop for the LinkStash CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a session are refused
// while signed out. The loop exits on EOF, when ctx is done or when the
// user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers
// report their own errors. This keeps the REPL loop resilient and focused
// on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "linkstash%s> ", statusFn())

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpSignedIn)
			} else {
				fmt.Fprintln(out, helpSignedOut)
			}
			continue

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue

		case "reset":
			_ = a.ResetPassword(ctx)
			continue
		}

		if !a.isLoggedIn() {
			if knownCommand(cmd) {
				fmt.Fprintln(out, "Please log in first.")
			} else {
				fmt.Fprintln(out, "Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "l", "list":
			_ = a.List(ctx, args)
		case "search":
			_ = a.Search(ctx, args)
		case "addlink":
			_ = a.Add(ctx, models.KindLink)
		case "addnote":
			_ = a.Add(ctx, models.KindNote)
		case "addtodo":
			_ = a.Add(ctx, models.KindTodo)
		case "addimage":
			_ = a.Add(ctx, models.KindImage)
		case "edit":
			_ = a.Edit(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)
		case "task":
			_ = a.Task(ctx, args)
		case "reload":
			_ = a.Reload(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "editprofile":
			_ = a.EditProfile(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)
		case "deleteaccount":
			_ = a.DeleteAccount(ctx)
		case "admin":
			_ = a.Admin(ctx, args)
		case "logout":
			_ = a.Logout(ctx)
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

var sessionCommands = []string{
	"l", "list", "search", "addlink", "addnote", "addtodo", "addimage", "edit", "delete",
	"task", "reload", "profile", "editprofile", "passwd", "deleteaccount", "admin", "logout",
}

func knownCommand(cmd string) bool {
	for _, c := range sessionCommands {
		if c == cmd {
			return true
		}
	}
	return false
}
