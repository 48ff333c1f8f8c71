package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const configDirName = "feedmaker"

// Config holds all configuration for the console
type Config struct {
	// API Configuration
	API APIConfig

	// Client-side persistent storage
	Storage StorageConfig

	// Logging Configuration
	Logging LoggingConfig

	// RoutesFile optionally replaces the built-in route access table
	RoutesFile string `envconfig:"ROUTES_FILE"`

	// CoalesceAuthChecks deduplicates concurrent /auth/me round trips
	CoalesceAuthChecks bool `envconfig:"COALESCE_AUTH_CHECKS" default:"false"`

	// WatchSchedule is the cron expression used by the watch command
	WatchSchedule string `envconfig:"WATCH_SCHEDULE" default:"@every 1m" validate:"required"`
}

// APIConfig holds backend endpoint configuration
type APIConfig struct {
	BaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8000" validate:"required,url"`
	Timeout time.Duration `envconfig:"API_TIMEOUT" default:"30s" validate:"gt=0"`
}

// StorageConfig selects where tokens and cookies survive between runs
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"file" validate:"oneof=file keyring sqlite memory"`
	Path    string `envconfig:"STORAGE_PATH"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`
}

// Load loads configuration from .env files and environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Storage.Path == "" {
		path, err := DefaultStoragePath(cfg.Storage.Backend)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultStoragePath returns the per-user location for the given backend
func DefaultStoragePath(backend string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	switch backend {
	case "sqlite":
		return filepath.Join(configDir, "storage.sqlite"), nil
	default:
		return filepath.Join(configDir, "storage.json"), nil
	}
}
