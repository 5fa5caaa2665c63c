// Package server wires the LinkStash backend: identity and document
// backends selected by configuration, the access rules and the gRPC
// endpoint. It shuts down gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/docstore/blobs"
	"github.com/dmitrijs2005/linkstash/internal/docstore/postgres"
	"github.com/dmitrijs2005/linkstash/internal/docstore/redisstore"
	"github.com/dmitrijs2005/linkstash/internal/docstore/sqlite"
	"github.com/dmitrijs2005/linkstash/internal/filex"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/server/config"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/linkstash/internal/server/rules"
	"github.com/dmitrijs2005/linkstash/internal/server/services"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/afero"

	gs "github.com/dmitrijs2005/linkstash/internal/server/grpc"
)

const connectDelay = 500 * time.Millisecond

type App struct {
	config  *config.Config
	logger  logging.Logger
	server  *gs.GRPCServer
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewLogger(logging.Options{Level: c.LogLevel, File: c.LogFile, MaxSizeMB: 10, MaxBackups: 3})
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	var db *sql.DB
	if c.IdentityBackend == config.BackendPostgres || c.DocumentBackend == config.BackendPostgres {
		var err error
		db, err = app.connectPostgres(ctx)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db)

		// the schema covers identities and documents
		if err := repomanager.NewPostgresRepositoryManager(db).RunMigrations(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	var rm repomanager.RepositoryManager
	switch c.IdentityBackend {
	case config.BackendMemory:
		rm = repomanager.NewMemoryRepositoryManager()
	case config.BackendPostgres:
		rm = repomanager.NewPostgresRepositoryManager(db)
	default:
		return fmt.Errorf("unknown identity backend %q", c.IdentityBackend)
	}

	docs, err := app.openDocuments(ctx, db)
	if err != nil {
		return err
	}

	if c.S3Bucket != "" {
		objects, err := blobs.NewS3Storage(ctx, blobs.S3Config{
			Region:    c.S3Region,
			Endpoint:  c.S3BaseEndpoint,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Bucket:    c.S3Bucket,
		})
		if err != nil {
			return fmt.Errorf("s3 init error: %w", err)
		}
		docs = blobs.New(docs, objects, app.logger.With("module", "blobs"))
		app.logger.Info(ctx, "Image payloads offloaded to S3", "bucket", c.S3Bucket)
	}

	ids := services.NewIdentityService(rm, c, services.NewLogMailer(app.logger), app.logger.With("module", "identity"))
	guarded := rules.New(docs, ids, c.OwnerEmail, app.logger.With("module", "rules"))

	app.server, err = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, ids, guarded, c.SecretKey)
	return err
}

// retryConnect runs connect until it succeeds or ConnectAttempts is used up.
func (app *App) retryConnect(ctx context.Context, what string, connect func() error) error {
	return retry.Do(connect,
		retry.Context(ctx),
		retry.Attempts(app.config.ConnectAttempts),
		retry.Delay(connectDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			app.logger.Warn(ctx, "connect failed, retrying", "target", what, "attempt", n+1, "error", err)
		}),
	)
}

func (app *App) connectPostgres(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := app.retryConnect(ctx, "postgres", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) openDocuments(ctx context.Context, db *sql.DB) (docstore.Store, error) {
	c := app.config
	app.logger.Info(ctx, "Document backend", "backend", c.DocumentBackend)

	switch c.DocumentBackend {
	case config.BackendMemory:
		return docstore.NewMemoryStore(), nil
	case config.BackendPostgres:
		return postgres.NewStore(db), nil
	case config.BackendSQLite:
		if _, err := filex.EnsureParentDir(afero.NewOsFs(), c.SQLitePath); err != nil {
			return nil, fmt.Errorf("sqlite init error: %w", err)
		}
		s, err := sqlite.Open(ctx, c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite init error: %w", err)
		}
		app.closers = append(app.closers, s)
		return s, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, client)
		if err := app.retryConnect(ctx, "redis", func() error { return client.Ping(ctx).Err() }); err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		return redisstore.NewStore(client), nil
	default:
		return nil, fmt.Errorf("unknown document backend %q", c.DocumentBackend)
	}
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a shutdown signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "Stopped")
}
