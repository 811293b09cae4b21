// Package config loads gamestream client settings from defaults, an HCL file
// and GAMESTREAM_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tsarna/gamestream/pkg/gamestream"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultServerURL      = "http://localhost:5000"
	DefaultLogLevel       = "info"
	DefaultConnectTimeout = 10 * time.Second
	EnvPrefix             = "GAMESTREAM_"
)

type Config struct {
	ServerURL  string        `env:"SERVER_URL"`
	EventsPath string        `env:"EVENTS_PATH"`
	TokenFile  string        `env:"TOKEN_FILE"`
	LogLevel   string        `env:"LOG_LEVEL"`
	BaseDelay  time.Duration `env:"BASE_DELAY"`
	MaxDelay   time.Duration `env:"MAX_DELAY"`
	// ConnectTimeout bounds the wait for the stream's response headers.
	// Zero disables it.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT"`
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Default returns the built-in configuration. TokenFile is left empty, which
// means the default credentials file.
func Default() *Config {
	return &Config{
		ServerURL:  DefaultServerURL,
		EventsPath: gamestream.DefaultPath,
		LogLevel:   DefaultLogLevel,
		BaseDelay:  gamestream.DefaultBaseDelay,
		MaxDelay:   gamestream.DefaultMaxDelay,

		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Load builds a configuration from the defaults, the file at path (skipped
// when path is empty) and the environment, then validates it. Each override
// runs after the environment is applied and before validation, in order.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from GAMESTREAM_* variables. Unset variables
// leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || c.ServerURL == "" {
		return ValidationError{Field: "server_url", Message: "must be a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server_url", Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return ValidationError{Field: "server_url", Message: "must include a host"}
	}

	if !strings.HasPrefix(c.EventsPath, "/") {
		return ValidationError{Field: "events_path", Message: "must start with /"}
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return ValidationError{Field: "log_level", Message: err.Error()}
	}

	if c.BaseDelay <= 0 {
		return ValidationError{Field: "backoff.base", Message: "must be positive"}
	}
	if c.MaxDelay < c.BaseDelay {
		return ValidationError{Field: "backoff.max", Message: "must not be less than backoff.base"}
	}
	if c.ConnectTimeout < 0 {
		return ValidationError{Field: "connect_timeout", Message: "must not be negative"}
	}

	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (c *Config) Backoff() gamestream.Backoff {
	return gamestream.Backoff{Base: c.BaseDelay, Max: c.MaxDelay}
}
