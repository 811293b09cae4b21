package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tsarna/gamestream/pkg/gamestream/config"
	"github.com/tsarna/gamestream/pkg/gamestream/credentials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loadConfig reads the config file and environment, then applies the flags
// the user actually set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, flagOverrides(cmd.Flags()))
}

func flagOverrides(flags *pflag.FlagSet) func(*config.Config) {
	return func(cfg *config.Config) {
		if flags.Changed("url") {
			cfg.ServerURL = serverURL
		}
		if flags.Changed("path") {
			cfg.EventsPath = eventsPath
		}
		if flags.Changed("base-delay") {
			cfg.BaseDelay = baseDelay
		}
		if flags.Changed("max-delay") {
			cfg.MaxDelay = maxDelay
		}
		if flags.Changed("connect-timeout") {
			cfg.ConnectTimeout = connectTimeout
		}
		if flags.Changed("token-file") {
			cfg.TokenFile = tokenFile
		}
	}
}

func tokenStore(cfg *config.Config) (*credentials.FileStore, error) {
	path := cfg.TokenFile
	if path == "" {
		var err error
		if path, err = credentials.DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	return credentials.NewFileStore(path), nil
}

// loggerLevel applies -d and -v to the configured level. -v only lowers the
// default info level.
func loggerLevel(level zapcore.Level) zapcore.Level {
	if GetDebug() {
		return zapcore.DebugLevel
	}
	if GetVerbose() && level == zapcore.InfoLevel {
		return zapcore.DebugLevel
	}
	return level
}

func setupLogger(level zapcore.Level) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(loggerLevel(level))
	zapConfig.Development = GetDebug()
	zapConfig.OutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return logger, nil
}
