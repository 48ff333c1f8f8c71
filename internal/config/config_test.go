package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every key the console reads; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_BASE_URL", "API_TIMEOUT", "STORAGE_BACKEND", "STORAGE_PATH",
		"LOG_LEVEL", "LOG_FORMAT", "ROUTES_FILE", "COALESCE_AUTH_CHECKS", "WATCH_SCHEDULE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "storage.json", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.CoalesceAuthChecks)
	assert.Equal(t, "@every 1m", cfg.WatchSchedule)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("API_BASE_URL", "https://api.feedmaker.example")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("STORAGE_PATH", filepath.Join(dir, "s.sqlite"))
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("COALESCE_AUTH_CHECKS", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://api.feedmaker.example", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "s.sqlite"), cfg.Storage.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.CoalesceAuthChecks)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown storage backend", key: "STORAGE_BACKEND", value: "cloud"},
		{name: "base url not a url", key: "API_BASE_URL", value: "not a url"},
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
		{name: "zero timeout", key: "API_TIMEOUT", value: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HOME", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
