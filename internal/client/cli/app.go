package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/client"
	"github.com/dmitrijs2005/linkstash/internal/client/config"
	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/client/services"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/spf13/afero"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config   *config.Config
	server   pinger
	closer   io.Closer
	items    *services.ItemStore
	accounts *services.Accounts
	fs       afero.Fs
	reader   *bufio.Reader
	out      io.Writer
	logger   logging.Logger
	now      func() time.Time
}

func newLogger(c *config.Config) logging.Logger {
	if c.LogFile == "" {
		return logging.Discard()
	}
	return logging.NewLogger(logging.Options{Level: c.LogLevel, File: c.LogFile, MaxSizeMB: 10, MaxBackups: 3})
}

// NewApp connects to the configured server and wires the client core.
func NewApp(c *config.Config) (*App, error) {
	logger := newLogger(c)

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.ServerEndpointAddr, err)
	}

	items := services.NewItemStore(apiClient, services.NewSession(), nil, logger)
	accounts := services.NewAccounts(apiClient, apiClient, items, logger)

	a := newApp(c, accounts, items, afero.NewOsFs(), os.Stdin, os.Stdout, logger)
	a.server = apiClient
	a.closer = apiClient
	return a, nil
}

func newApp(c *config.Config, accounts *services.Accounts, items *services.ItemStore, fs afero.Fs, in io.Reader, out io.Writer, logger logging.Logger) *App {
	return &App{
		config:   c,
		items:    items,
		accounts: accounts,
		fs:       fs,
		reader:   bufio.NewReader(in),
		out:      out,
		logger:   logger,
		now:      time.Now,
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	stop := a.accounts.Watch()
	defer stop()
	defer func() {
		if a.closer != nil {
			_ = a.closer.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.accounts.Session().State() == services.SignedIn
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// report shows err to the user and returns it unchanged.
func (a *App) report(err error) error {
	a.println(userMessage(err))
	return err
}

func userMessage(err error) string {
	if _, ok := common.AuthCodeOf(err); ok {
		return gateway.Message(err)
	}
	switch {
	case errors.Is(err, services.ErrNotSignedIn):
		return "Please log in first."
	case errors.Is(err, services.ErrValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, services.ErrForbidden), errors.Is(err, common.ErrorForbidden):
		return "Not permitted: " + err.Error()
	case errors.Is(err, services.ErrProfileMissing):
		return "This account has no profile. Please register again or contact support."
	case errors.Is(err, client.ErrUnavailable):
		return "The server is unavailable. Please try again later."
	case errors.Is(err, common.ErrorUnauthorized):
		return gateway.Message(err)
	case errors.Is(err, services.ErrStore):
		return "The request could not be completed. Please try again."
	}
	return "Error: " + err.Error()
}
