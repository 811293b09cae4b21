package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsarna/gamestream/pkg/gamestream"
	"github.com/tsarna/gamestream/pkg/gamestream/config"
	"github.com/tsarna/gamestream/pkg/gamestream/credentials"
	"github.com/tsarna/gamestream/pkg/gamestream/otel"
	"github.com/tsarna/gamestream/pkg/gamestream/sse"
	"github.com/tsarna/gamestream/pkg/gamestream/subutils"
	"github.com/tsarna/gamestream/pkg/gamestream/transform"
	"go.uber.org/zap"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream game events and print them to stdout",
	Long: `Open the game server's event stream and print every event as a line of
"<event>\t<json>" until interrupted. The stream is reopened with exponential
backoff whenever it fails.

Examples:
  gamestream listen --url https://game.example.com
  gamestream listen --diff
  gamestream listen --filter 'select($event == "gameWon") | .score'`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

var (
	serverURL  string
	eventsPath string
	jqFilter   string
	diffState  bool
	baseDelay  time.Duration
	maxDelay   time.Duration
	queueSize  int

	connectTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&serverURL, "url", "", "game server base URL")
	listenCmd.Flags().StringVar(&eventsPath, "path", gamestream.DefaultPath, "event stream path")
	listenCmd.Flags().StringVar(&jqFilter, "filter", "", "jq query applied to each payload ($event holds the event type)")
	listenCmd.Flags().BoolVar(&diffState, "diff", false, "print only the fields of gameState that changed")
	listenCmd.Flags().DurationVar(&baseDelay, "base-delay", gamestream.DefaultBaseDelay, "first reconnect delay")
	listenCmd.Flags().DurationVar(&maxDelay, "max-delay", gamestream.DefaultMaxDelay, "maximum reconnect delay")
	listenCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", config.DefaultConnectTimeout, "time to wait for the server to answer (0 waits forever)")
	listenCmd.Flags().IntVar(&queueSize, "queue-size", 100, "events buffered for printing")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := setupLogger(cfg.Level())
	if err != nil {
		return err
	}
	defer logger.Sync()

	var filter *transform.JqFilter
	if jqFilter != "" {
		if filter, err = transform.NewJqFilter(jqFilter); err != nil {
			return err
		}
	}

	fileStore, err := tokenStore(cfg)
	if err != nil {
		return err
	}
	store := credentials.ChainStore{credentials.NewEnvStore(credentials.DefaultEnvPrefix), fileStore}
	warnIfExpired(store, logger)

	transport, err := sse.New(cfg.ServerURL,
		sse.WithLogger(logger),
		sse.WithHeader("User-Agent", "gamestream/"+Version),
		sse.WithConnectTimeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return err
	}

	provider := otel.NewProvider("gamestream", Version)

	backoff := cfg.Backoff()
	manager, err := gamestream.NewManager().
		WithTransport(transport).
		WithCredentials(store).
		WithPath(cfg.EventsPath).
		WithBackoff(backoff.Base, backoff.Max).
		WithLogger(logger).
		WithMonitor(&phaseLogger{logger: logger}).
		WithMetrics(provider).
		WithTracing(provider).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create stream manager: %w", err)
	}

	printer := newPrintingSubscriber(cmd.OutOrStdout(), logger).WithFilter(filter)
	if diffState {
		printer = printer.WithDelta(transform.NewStateDelta())
	}
	queued := subutils.NewAsyncQueueingSubscriber(printer, queueSize).WithLogger(logger).Start()
	defer queued.Close()

	subscriber := subutils.NewNamedLoggingSubscriber(queued, logger, zap.DebugLevel, "printer")
	for _, eventType := range gamestream.EventTypes {
		if err := manager.On(eventType, subscriber); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Starting event stream",
		zap.String("url", cfg.ServerURL),
		zap.String("path", cfg.EventsPath),
		zap.Duration("base-delay", backoff.Base),
		zap.Duration("max-delay", backoff.Max),
		zap.Duration("connect-timeout", cfg.ConnectTimeout),
	)

	if err := manager.Connect(ctx); err != nil {
		if errors.Is(err, gamestream.ErrNoCredential) {
			return fmt.Errorf("%w (set one with \"gamestream token set\" or %s)",
				err, credentials.NewEnvStore(credentials.DefaultEnvPrefix).VarName(gamestream.DefaultCredentialKey))
		}
		logger.Warn("Initial connection failed, retrying in background", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Listening for events... (Press Ctrl+C to exit)")

	sig := <-sigChan
	logger.Debug("Signal received, exiting", zap.String("signal", sig.String()))

	manager.Disconnect()
	if err := queued.Close(); err != nil {
		logger.Warn("Error flushing output", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

func warnIfExpired(source gamestream.CredentialSource, logger *zap.Logger) {
	token, err := source.Get(gamestream.DefaultCredentialKey)
	if err != nil || token == "" {
		return
	}

	info, err := credentials.InspectToken(token)
	if err != nil {
		logger.Debug("Stored token is not a JWT, skipping expiry check", zap.Error(err))
		return
	}
	if info.Expired(time.Now()) {
		logger.Warn("Stored token has expired; the server will likely reject it",
			zap.Time("expired-at", info.ExpiresAt),
		)
	}
}

// phaseLogger reports connection phase changes.
type phaseLogger struct {
	logger *zap.Logger
}

func (p *phaseLogger) OnStateChange(from, to gamestream.Phase) {
	p.logger.Info("Connection state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}
