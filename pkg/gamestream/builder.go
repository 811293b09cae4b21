package gamestream

import (
	"context"
	"fmt"
	"time"

	"github.com/tsarna/gamestream/pkg/gamestream/o11y"
	"go.uber.org/zap"
)

const (
	// DefaultPath is the server's event stream endpoint.
	DefaultPath = "/events"
	// DefaultCredentialKey is the key the bearer token is stored under.
	DefaultCredentialKey = "token"
)

// ManagerBuilder provides a fluent interface for building a Manager.
type ManagerBuilder struct {
	transport       Transport
	credentials     CredentialSource
	credentialKey   string
	path            string
	backoff         Backoff
	scheduler       Scheduler
	dispatcher      *Dispatcher
	logger          *zap.Logger
	monitor         Monitor
	metricsProvider o11y.MetricsProvider
	tracingProvider o11y.TracingProvider
}

// NewManager creates a ManagerBuilder with the default path, credential key,
// backoff and wall-clock scheduler.
func NewManager() *ManagerBuilder {
	return &ManagerBuilder{
		credentialKey: DefaultCredentialKey,
		path:          DefaultPath,
		backoff:       DefaultBackoff(),
		scheduler:     WallClock{},
		logger:        zap.NewNop(),
	}
}

// WithTransport sets the transport used to open the stream. Required.
func (b *ManagerBuilder) WithTransport(transport Transport) *ManagerBuilder {
	b.transport = transport
	return b
}

// WithCredentials sets where the bearer token is read from. Required.
func (b *ManagerBuilder) WithCredentials(credentials CredentialSource) *ManagerBuilder {
	b.credentials = credentials
	return b
}

// WithCredentialKey overrides the key the token is read from.
func (b *ManagerBuilder) WithCredentialKey(key string) *ManagerBuilder {
	if key != "" {
		b.credentialKey = key
	}
	return b
}

// WithPath overrides the stream endpoint path.
func (b *ManagerBuilder) WithPath(path string) *ManagerBuilder {
	if path != "" {
		b.path = path
	}
	return b
}

// WithBackoff sets the base and maximum reconnect delays.
func (b *ManagerBuilder) WithBackoff(base, max time.Duration) *ManagerBuilder {
	b.backoff = Backoff{Base: base, Max: max}
	return b
}

// WithScheduler replaces the wall-clock scheduler, typically with a fake in tests.
func (b *ManagerBuilder) WithScheduler(scheduler Scheduler) *ManagerBuilder {
	if scheduler != nil {
		b.scheduler = scheduler
	}
	return b
}

// WithDispatcher shares an existing Dispatcher instead of creating one.
func (b *ManagerBuilder) WithDispatcher(dispatcher *Dispatcher) *ManagerBuilder {
	b.dispatcher = dispatcher
	return b
}

// WithLogger sets the logger for the manager.
func (b *ManagerBuilder) WithLogger(logger *zap.Logger) *ManagerBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithMonitor sets an optional observer of phase transitions.
func (b *ManagerBuilder) WithMonitor(monitor Monitor) *ManagerBuilder {
	b.monitor = monitor
	return b
}

// WithMetrics sets the metrics provider for the manager and, when the
// dispatcher is created by Build, for the dispatcher too.
func (b *ManagerBuilder) WithMetrics(provider o11y.MetricsProvider) *ManagerBuilder {
	b.metricsProvider = provider
	return b
}

// WithTracing sets the tracing provider for connect attempts.
func (b *ManagerBuilder) WithTracing(provider o11y.TracingProvider) *ManagerBuilder {
	b.tracingProvider = provider
	return b
}

// IsValid checks that all required configuration is present.
func (b *ManagerBuilder) IsValid() error {
	if b.transport == nil {
		return fmt.Errorf("transport is required")
	}

	if b.credentials == nil {
		return fmt.Errorf("credential source is required")
	}

	if err := b.backoff.Validate(); err != nil {
		return err
	}

	return nil
}

// Build creates the Manager. The Manager starts Idle; call Connect to open the stream.
func (b *ManagerBuilder) Build() (*Manager, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	dispatcher := b.dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher(b.logger).WithMetrics(b.metricsProvider)
	}

	return &Manager{
		transport:     b.transport,
		credentials:   b.credentials,
		credentialKey: b.credentialKey,
		path:          b.path,
		backoff:       b.backoff,
		scheduler:     b.scheduler,
		dispatcher:    dispatcher,
		logger:        b.logger,
		monitor:       b.monitor,
		metrics:       o11y.NewInstruments(b.metricsProvider),
		tracing:       b.tracingProvider,
		streamCtx:     context.Background(),
		phase:         PhaseIdle,
		delay:         b.backoff.Base,
	}, nil
}
