package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vyrodovalexey/todo-crud/internal/client"
	"github.com/vyrodovalexey/todo-crud/internal/crud"
)

const (
	envPrefix = "TODOS"

	cfgKeyConfig    = "config"
	cfgKeyBaseURL   = "base_url"
	cfgKeyOps       = "ops"
	cfgKeyAPIKey    = "api_key"
	cfgKeyTimeout   = "timeout"
	cfgKeyRateLimit = "rate_limit"
	cfgKeyMaxID     = "max_id"
	cfgKeyLogLevel  = "log_level"
	cfgKeyOutput    = "output"

	outputJSON = "json"
	outputText = "text"
)

var errInvalidOutput = errors.New("output must be one of: json, text")

// settings is the resolved CLI configuration.
type settings struct {
	BaseURL   string
	Ops       crud.Config
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	MaxID     int
	LogLevel  string
	Output    string
}

// bindFlags registers the persistent flags of cmd and binds each one to its
// viper key. Flag names use dashes, keys and TODOS_ env vars use underscores.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("base-url", client.DefaultBaseURL, "todo API base URL")
	flags.String("ops", "all", "enabled operations: all, read, read-delete, none or a list such as create,read-all")
	flags.String("api-key", "", "API key sent in the X-API-Key header")
	flags.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	flags.Float64("rate-limit", 0, "maximum requests per second, 0 for unlimited")
	flags.Int("max-id", 0, "keep only todos with an id up to this value on read-all, 0 keeps all")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.StringP("output", "o", outputText, "output format: json, text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		cfgKeyConfig, cfgKeyBaseURL, cfgKeyOps, cfgKeyAPIKey, cfgKeyTimeout,
		cfgKeyRateLimit, cfgKeyMaxID, cfgKeyLogLevel, cfgKeyOutput,
	} {
		if err := v.BindPFlag(key, flags.Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// loadSettings reads the optional config file and resolves the settings
// with flag > env > file > default precedence.
func loadSettings(v *viper.Viper) (settings, error) {
	if path := v.GetString(cfgKeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	ops, err := crud.ParseConfig(v.GetString(cfgKeyOps))
	if err != nil {
		return settings{}, fmt.Errorf("parse ops: %w", err)
	}

	s := settings{
		BaseURL:   v.GetString(cfgKeyBaseURL),
		Ops:       ops,
		APIKey:    v.GetString(cfgKeyAPIKey),
		Timeout:   v.GetDuration(cfgKeyTimeout),
		RateLimit: v.GetFloat64(cfgKeyRateLimit),
		MaxID:     v.GetInt(cfgKeyMaxID),
		LogLevel:  v.GetString(cfgKeyLogLevel),
		Output:    strings.ToLower(v.GetString(cfgKeyOutput)),
	}

	if s.Output != outputJSON && s.Output != outputText {
		return settings{}, fmt.Errorf("%w: %q", errInvalidOutput, s.Output)
	}
	return s, nil
}
