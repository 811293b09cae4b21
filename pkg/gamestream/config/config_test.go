package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/gamestream/pkg/gamestream"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamestream.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, gamestream.DefaultPath, cfg.EventsPath)
	assert.Equal(t, gamestream.DefaultBackoff(), cfg.Backoff())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server_url  = "https://game.example.com"
events_path = "/api/events"
token_file  = "/tmp/creds.yaml"
log_level   = "debug"
connect_timeout = "3s"

backoff {
  base = "500ms"
  max  = "1m"
}
`)

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "https://game.example.com", cfg.ServerURL)
	assert.Equal(t, "/api/events", cfg.EventsPath)
	assert.Equal(t, "/tmp/creds.yaml", cfg.TokenFile)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, time.Minute, cfg.MaxDelay)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
}

func TestLoadFilePartial(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadBytes([]byte(`backoff { max = "10s" }`), "partial.hcl"))

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, gamestream.DefaultBaseDelay, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := Default().LoadFile(filepath.Join(t.TempDir(), "nope.hcl"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("syntax error", func(t *testing.T) {
		err := Default().LoadBytes([]byte(`server_url = `), "bad.hcl")
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("unknown attribute", func(t *testing.T) {
		err := Default().LoadBytes([]byte(`colour = "red"`), "bad.hcl")
		assert.ErrorContains(t, err, "failed to decode config file")
	})

	t.Run("bad duration", func(t *testing.T) {
		err := Default().LoadBytes([]byte(`backoff { base = "soon" }`), "bad.hcl")
		var verr ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "backoff.base", verr.Field)
	})

	t.Run("bad connect timeout", func(t *testing.T) {
		err := Default().LoadBytes([]byte(`connect_timeout = "later"`), "bad.hcl")
		var verr ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "connect_timeout", verr.Field)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GAMESTREAM_SERVER_URL", "https://env.example.com")
	t.Setenv("GAMESTREAM_BASE_DELAY", "2s")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "https://env.example.com", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.BaseDelay)
	assert.Equal(t, gamestream.DefaultPath, cfg.EventsPath)
	assert.Equal(t, gamestream.DefaultMaxDelay, cfg.MaxDelay)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("GAMESTREAM_MAX_DELAY", "forever")

	assert.ErrorContains(t, Default().ApplyEnv(), "failed to read environment")
}

func TestLoadLayering(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://file.example.com"
log_level  = "warn"
`)
	t.Setenv("GAMESTREAM_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.ServerURL)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, gamestream.DefaultBaseDelay, cfg.BaseDelay)
}

func TestLoadOverridesFollowEnvironment(t *testing.T) {
	path := writeConfig(t, `log_level = "warn"`)
	t.Setenv("GAMESTREAM_SERVER_URL", "https://env.example.com")

	cfg, err := Load(path, func(c *Config) {
		c.ServerURL = "https://flag.example.com"
	}, func(c *Config) {
		c.LogLevel = "fatal"
	})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.ServerURL)
	assert.Equal(t, zapcore.FatalLevel, cfg.Level())
}

func TestLoadValidatesOverrides(t *testing.T) {
	_, err := Load("", func(c *Config) { c.BaseDelay = -time.Second })

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "backoff.base", verr.Field)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `backoff {
  base = "10s"
  max  = "1s"
}`)

	_, err := Load(path)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "backoff.max", verr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty url", func(c *Config) { c.ServerURL = "" }, "server_url"},
		{"bad scheme", func(c *Config) { c.ServerURL = "ws://x" }, "server_url"},
		{"no host", func(c *Config) { c.ServerURL = "http://" }, "server_url"},
		{"relative path", func(c *Config) { c.EventsPath = "events" }, "events_path"},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"zero base", func(c *Config) { c.BaseDelay = 0 }, "backoff.base"},
		{"max below base", func(c *Config) { c.MaxDelay = time.Millisecond }, "backoff.max"},
		{"negative connect timeout", func(c *Config) { c.ConnectTimeout = -time.Second }, "connect_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			var verr ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
