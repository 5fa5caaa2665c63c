package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LogFile = filepath.Join(t.TempDir(), "server.log")
	c.ConnectAttempts = 1
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, app.server)
	assert.Empty(t, app.closers)
}

func TestNewApp_SQLite(t *testing.T) {
	c := testConfig(t)
	c.DocumentBackend = config.BackendSQLite
	c.SQLitePath = filepath.Join(t.TempDir(), "docs.db")

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, app.closers, 1)
	app.close(context.Background())
}

func TestNewApp_UnknownBackends(t *testing.T) {
	c := testConfig(t)
	c.DocumentBackend = "mongo"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, `unknown document backend "mongo"`)

	c = testConfig(t)
	c.IdentityBackend = "ldap"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, `unknown identity backend "ldap"`)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	c := testConfig(t)
	c.DocumentBackend = config.BackendRedis
	c.RedisAddr = "127.0.0.1:1"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "redis init error")
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
