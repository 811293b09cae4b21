package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/gamestream/pkg/gamestream/config"
	"go.uber.org/zap/zapcore"
)

func setLogFlags(t *testing.T, d, v bool) {
	t.Helper()
	oldDebug, oldVerbose := debug, verbose
	debug, verbose = d, v
	t.Cleanup(func() { debug, verbose = oldDebug, oldVerbose })
}

func TestLoggerLevel(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		verbose bool
		level   zapcore.Level
		want    zapcore.Level
	}{
		{"configured", false, false, zapcore.WarnLevel, zapcore.WarnLevel},
		{"fatal kept", false, false, zapcore.FatalLevel, zapcore.FatalLevel},
		{"dpanic kept", false, false, zapcore.DPanicLevel, zapcore.DPanicLevel},
		{"debug flag wins", true, false, zapcore.ErrorLevel, zapcore.DebugLevel},
		{"verbose lowers info", false, true, zapcore.InfoLevel, zapcore.DebugLevel},
		{"verbose keeps explicit level", false, true, zapcore.ErrorLevel, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setLogFlags(t, tt.debug, tt.verbose)
			assert.Equal(t, tt.want, loggerLevel(tt.level))
		})
	}
}

func TestSetupLoggerUsesConfiguredLevel(t *testing.T) {
	setLogFlags(t, false, false)
	t.Setenv("GAMESTREAM_LOG_LEVEL", "fatal")

	cfg, err := config.Load("")
	require.NoError(t, err)

	logger, err := setupLogger(cfg.Level())
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
	assert.True(t, logger.Core().Enabled(zapcore.FatalLevel))
}

func TestFlagOverridesApplyAfterEnvironment(t *testing.T) {
	oldURL, oldTimeout, oldBase := serverURL, connectTimeout, baseDelay
	t.Cleanup(func() { serverURL, connectTimeout, baseDelay = oldURL, oldTimeout, oldBase })

	t.Setenv("GAMESTREAM_SERVER_URL", "https://env.example.com")
	t.Setenv("GAMESTREAM_MAX_DELAY", "45s")

	flags := pflag.NewFlagSet("listen", pflag.ContinueOnError)
	flags.StringVar(&serverURL, "url", "", "")
	flags.DurationVar(&connectTimeout, "connect-timeout", config.DefaultConnectTimeout, "")
	flags.DurationVar(&baseDelay, "base-delay", time.Second, "")
	require.NoError(t, flags.Parse([]string{"--url", "https://flag.example.com", "--connect-timeout", "0s"}))

	cfg, err := config.Load("", flagOverrides(flags))
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.ServerURL)
	assert.Equal(t, time.Duration(0), cfg.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Backoff().Max)
	assert.Equal(t, time.Second, cfg.Backoff().Base)
}
