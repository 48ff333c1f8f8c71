package console

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzeron/feedmaker-console/internal/config"
	"github.com/terzeron/feedmaker-console/internal/guard"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		API:           config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Storage:       config.StorageConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "storage.sqlite")},
		Logging:       config.LoggingConfig{Level: "info", Format: "console"},
		WatchSchedule: "@every 1m",
	}
}

func TestOpen_Wiring(t *testing.T) {
	c, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "http://127.0.0.1:1", c.API.BaseURL())
	assert.False(t, c.Session.Session().IsAuthenticated())
	assert.Empty(t, c.Redirects.Last())
}

func TestOpen_GuardUsesSession(t *testing.T) {
	// Nothing listens on the API port, so every auth check fails closed
	c, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	d := c.Guard.Navigate(context.Background(), "/problems")
	assert.Equal(t, guard.Redirect, d.Outcome)
	assert.Equal(t, "/login?redirect=/problems", c.Redirects.Last())

	assert.Equal(t, guard.Allow, c.Guard.Navigate(context.Background(), "/login").Outcome)
}

func TestOpen_RoutesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.RoutesFile = filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(cfg.RoutesFile, []byte(`
routes:
  - path: /login
    name: Login
    requiresAuth: true
`), 0600))

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, guard.ErrRouteLoop)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "cloud"

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
