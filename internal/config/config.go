// Package config provides configuration management for the placeholder
// todo API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/todo-crud/internal/auth"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStoreBackend    = BackendMemory
	DefaultSQLitePath      = "todos.db"
	DefaultSeedCount       = 200
	DefaultAuthMode        = auth.MethodNone
	DefaultProbePort       = 9090
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvStoreBackend    = "APP_STORE_BACKEND"
	EnvSQLitePath      = "APP_SQLITE_PATH"
	EnvSeedCount       = "APP_SEED_COUNT"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvProbePort       = "APP_PROBE_PORT"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Storage settings.
	StoreBackend string
	SQLitePath   string
	SeedCount    int // Todos inserted into an empty store at startup.

	// Authentication mode: none, basic, apikey, multi.
	AuthMode auth.Method

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: memory, sqlite")
	ErrInvalidSQLitePath      = errors.New("sqlite path must be set when store backend is sqlite")
	ErrInvalidSeedCount       = errors.New("seed count must not be negative")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, basic, apikey, multi")
	ErrInvalidBasicAuthConfig = errors.New("basic auth users must be set when auth mode is basic")
	ErrInvalidAPIKeyConfig    = errors.New("API keys must be set when auth mode is apikey")
	ErrInvalidMultiAuthConfig = errors.New("basic auth users or API keys must be set when auth mode is multi")
	ErrInvalidProbePort       = errors.New("probe port must be between 0 and 65535")
	ErrProbePortConflict      = errors.New("probe port must differ from server port when probe port is not 0")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:      DefaultServerPort,
		ProbePort:       DefaultProbePort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		StoreBackend:    DefaultStoreBackend,
		SQLitePath:      DefaultSQLitePath,
		SeedCount:       DefaultSeedCount,
		AuthMode:        DefaultAuthMode,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fromEnv parses the variable name into dst when it is set.
func fromEnv[T any](name string, parse func(string) (T, error), dst *T) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	parsed, err := parse(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = parsed
	return nil
}

func asString(s string) (string, error) { return s, nil }

func asMethod(s string) (auth.Method, error) {
	m, err := auth.ParseMethod(s)
	if err != nil {
		return "", ErrInvalidAuthMode
	}
	return m, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	return errors.Join(
		fromEnv(EnvServerPort, strconv.Atoi, &c.ServerPort),
		fromEnv(EnvProbePort, strconv.Atoi, &c.ProbePort),
		fromEnv(EnvLogLevel, asString, &c.LogLevel),
		fromEnv(EnvShutdownTimeout, time.ParseDuration, &c.ShutdownTimeout),
		fromEnv(EnvMetricsEnabled, strconv.ParseBool, &c.MetricsEnabled),
		fromEnv(EnvStoreBackend, asString, &c.StoreBackend),
		fromEnv(EnvSQLitePath, asString, &c.SQLitePath),
		fromEnv(EnvSeedCount, strconv.Atoi, &c.SeedCount),
		fromEnv(EnvAuthMode, asMethod, &c.AuthMode),
		fromEnv(EnvBasicAuthUsers, asString, &c.BasicAuthUsers),
		fromEnv(EnvAPIKeys, asString, &c.APIKeys),
	)
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return c.validateAuth()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates the storage backend settings.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return ErrInvalidSQLitePath
		}
	default:
		return ErrInvalidStoreBackend
	}

	if c.SeedCount < 0 {
		return ErrInvalidSeedCount
	}

	return nil
}

// validateAuth validates the auth mode and its required credentials.
func (c *Config) validateAuth() error {
	switch c.authModeOrDefault() {
	case auth.MethodNone:
	case auth.MethodBasic:
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case auth.MethodAPIKey:
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case auth.MethodMulti:
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() auth.Method {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Authenticator builds the authenticator for the configured mode. It
// returns nil when authentication is disabled.
func (c *Config) Authenticator() (auth.Authenticator, error) {
	return auth.New(c.authModeOrDefault(), c.BasicAuthUsers, c.APIKeys)
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
