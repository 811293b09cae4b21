package gamestream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsarna/gamestream/pkg/gamestream/o11y"
	"go.uber.org/zap"
)

var ErrNoCredential = errors.New("no authentication token available")

// Phase is the lifecycle state of a Manager.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseReconnectPending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseConnecting:
		return "Connecting"
	case PhaseOpen:
		return "Open"
	case PhaseReconnectPending:
		return "ReconnectPending"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Monitor observes Manager phase transitions. It is called with the Manager's
// state lock held and must not call back into the Manager.
type Monitor interface {
	OnStateChange(from, to Phase)
}

// Manager keeps one event stream open and feeds its events to a Dispatcher.
//
// Every failure (a transport error, an error event sent by the server, or a
// failed Open) closes the stream and schedules a reconnect after an
// exponentially growing delay. Retries continue until Disconnect is called.
// A missing credential is not retried.
type Manager struct {
	transport     Transport
	credentials   CredentialSource
	credentialKey string
	path          string
	backoff       Backoff
	scheduler     Scheduler
	dispatcher    *Dispatcher
	logger        *zap.Logger
	monitor       Monitor
	metrics       *o11y.Instruments
	tracing       o11y.TracingProvider

	// streamCtx is handed to the transport; streams outlive Connect calls.
	streamCtx context.Context

	mu       sync.Mutex
	phase    Phase
	attempt  *attempt
	delay    time.Duration
	failures int
	timer    *reconnectTimer
}

// attempt is one call to Transport.Open. It is the StreamHandler for the
// stream it opened, and its notifications are dropped once it is no longer
// the Manager's current attempt.
type attempt struct {
	m      *Manager
	id     string
	stream Stream
}

type reconnectTimer struct {
	timer Timer
	delay time.Duration
}

// Connect (re)opens the stream. It first tears down any open stream and
// pending reconnect, so it is safe to call in any phase.
//
// ctx only scopes this call (tracing, logging); the stream itself lives until
// Disconnect or a failure. Connect returns ErrNoCredential when no token is
// stored, or the transport's error if the stream could not be started; in the
// latter case a reconnect has already been scheduled.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, nil)
}

// Disconnect closes the stream and cancels any pending reconnect. It always
// leaves the Manager Idle and is safe to call repeatedly.
//
// Notifications from the closed stream that have not started delivery when
// Disconnect returns are dropped. A delivery already under way runs to
// completion, so subscribers may see one more event after Disconnect returns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	stream := m.teardownLocked()
	m.setPhaseLocked(PhaseIdle)
	m.mu.Unlock()

	closeStream(stream, m.logger)
	m.logger.Debug("Event stream disconnected")
}

// On registers subscriber for eventType on the Manager's Dispatcher.
func (m *Manager) On(eventType EventType, subscriber Subscriber) error {
	return m.dispatcher.On(eventType, subscriber)
}

// Off removes one registration of subscriber for eventType.
func (m *Manager) Off(eventType EventType, subscriber Subscriber) bool {
	return m.dispatcher.Off(eventType, subscriber)
}

// Dispatcher returns the Dispatcher events are delivered through.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Delay returns the current reconnect delay: the delay of the most recently
// scheduled reconnect, or the base delay after a successful open.
func (m *Manager) Delay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delay
}

// Failures returns the number of consecutive failures since the last open.
func (m *Manager) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Manager) connect(ctx context.Context, via *reconnectTimer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var span o11y.Span
	if m.tracing != nil {
		ctx, span = m.tracing.StartSpan(ctx, o11y.SpanConnect)
		defer func() {
			if err != nil {
				span.SetStatus(o11y.SpanStatusError, err.Error())
			} else {
				span.SetStatus(o11y.SpanStatusOK, "")
			}
			span.End()
		}()
	}

	m.mu.Lock()
	if via != nil && m.timer != via {
		// Cancelled or superseded while the timer was firing.
		m.mu.Unlock()
		return nil
	}

	previous := m.teardownLocked()

	token, credErr := m.credentials.Get(m.credentialKey)
	if credErr != nil || token == "" {
		m.setPhaseLocked(PhaseIdle)
		m.mu.Unlock()
		closeStream(previous, m.logger)

		err = ErrNoCredential
		if credErr != nil {
			err = fmt.Errorf("%w: %w", ErrNoCredential, credErr)
		}
		m.logger.Error("Not connecting to event stream", zap.Error(err))
		o11y.Inc(ctx, m.metrics.ConnectAttempts, o11y.Label{Key: o11y.LabelStatus, Value: o11y.LabelStatusNoCredentials})
		m.dispatcher.Dispatch(ctx, EventError, NewErrorPayload(ErrorKindConfiguration, err))
		return err
	}

	a := &attempt{m: m, id: uuid.NewString()}
	m.attempt = a
	m.setPhaseLocked(PhaseConnecting)
	m.mu.Unlock()

	closeStream(previous, m.logger)

	logger := m.logger.With(zap.String("attempt", a.id))
	logger.Info("Connecting to event stream", zap.String("path", m.path))
	if span != nil {
		span.SetAttributes(o11y.Label{Key: "attempt", Value: a.id}, o11y.Label{Key: "path", Value: m.path})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	stream, openErr := m.transport.Open(m.streamCtx, m.path, header, a)

	m.mu.Lock()
	if m.attempt != a {
		// Disconnected, reconnected or failed while opening.
		m.mu.Unlock()
		closeStream(stream, logger)
		if openErr != nil {
			return fmt.Errorf("failed to open event stream: %w", openErr)
		}
		return nil
	}
	if openErr == nil {
		a.stream = stream
		m.mu.Unlock()
		o11y.Inc(ctx, m.metrics.ConnectAttempts, o11y.Label{Key: o11y.LabelStatus, Value: o11y.LabelStatusSuccess})
		return nil
	}
	m.mu.Unlock()

	err = fmt.Errorf("failed to open event stream: %w", openErr)
	o11y.Inc(ctx, m.metrics.ConnectAttempts, o11y.Label{Key: o11y.LabelStatus, Value: o11y.LabelStatusError})
	m.dispatcher.Dispatch(ctx, EventError, NewErrorPayload(ErrorKindTransport, err))
	m.fail(a, err)
	return err
}

// teardownLocked cancels the pending timer and detaches the current attempt,
// returning its stream for the caller to close once the lock is released.
func (m *Manager) teardownLocked() Stream {
	if m.timer != nil {
		m.timer.timer.Stop()
		m.timer = nil
	}

	var stream Stream
	if m.attempt != nil {
		stream = m.attempt.stream
		m.attempt = nil
	}
	return stream
}

// fail handles a failure of attempt a, if it is still current.
func (m *Manager) fail(a *attempt, cause error) {
	m.mu.Lock()
	if m.attempt != a {
		m.mu.Unlock()
		return
	}

	stream := a.stream
	m.attempt = nil

	if m.failures > 0 {
		m.delay = m.backoff.Next(m.delay)
	}
	m.failures++
	delay := m.delay
	failures := m.failures

	t := &reconnectTimer{delay: delay}
	m.timer = t
	t.timer = m.scheduler.AfterFunc(delay, func() {
		m.reconnect(t)
	})
	m.setPhaseLocked(PhaseReconnectPending)
	m.mu.Unlock()

	closeStream(stream, m.logger)

	ctx := context.Background()
	o11y.Inc(ctx, m.metrics.TransportFailures)
	o11y.Inc(ctx, m.metrics.ReconnectsPlanned)
	m.metrics.RecordDelay(ctx, delay)

	m.logger.Warn("Event stream failed, scheduling reconnect",
		zap.String("attempt", a.id),
		zap.Duration("delay", delay),
		zap.Int("failures", failures),
		zap.Error(cause),
	)
}

func (m *Manager) reconnect(t *reconnectTimer) {
	m.logger.Info("Attempting to reconnect", zap.Duration("after", t.delay))
	if err := m.connect(context.Background(), t); err != nil {
		m.logger.Debug("Reconnect attempt did not start", zap.Error(err))
	}
}

func (m *Manager) setPhaseLocked(to Phase) {
	from := m.phase
	if from == to {
		return
	}
	m.phase = to
	if m.monitor != nil {
		m.monitor.OnStateChange(from, to)
	}
}

func (m *Manager) isCurrent(a *attempt) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt == a
}

// OnOpen implements StreamHandler.
func (a *attempt) OnOpen() {
	m := a.m

	m.mu.Lock()
	if m.attempt != a || m.phase != PhaseConnecting {
		m.mu.Unlock()
		return
	}
	m.delay = m.backoff.Base
	m.failures = 0
	m.setPhaseLocked(PhaseOpen)
	m.mu.Unlock()

	o11y.Inc(context.Background(), m.metrics.ConnectionsOpened)
	m.logger.Info("Event stream established", zap.String("attempt", a.id))
}

// OnEvent implements StreamHandler.
func (a *attempt) OnEvent(name string, data []byte) {
	m := a.m
	if !m.isCurrent(a) {
		return
	}

	ctx := context.Background()
	eventType := EventType(name)

	if eventType == EventError {
		failure := decodeErrorPayload(data)
		if a.deliver(ctx, EventError, failure) {
			m.fail(a, failure)
		}
		return
	}

	payload, err := DecodePayload(eventType, data)
	if errors.Is(err, ErrUnknownEventType) {
		m.logger.Debug("Ignoring unrecognised stream event", zap.String("event", name))
		return
	}
	if err != nil {
		m.logger.Warn("Dropping undecodable event",
			zap.String("attempt", a.id),
			zap.String("event", name),
			zap.Error(err),
		)
		a.deliver(ctx, EventError, NewErrorPayload(ErrorKindDecode, err))
		return
	}

	a.deliver(ctx, eventType, payload)
}

// OnError implements StreamHandler.
func (a *attempt) OnError(err error) {
	failure := ErrorPayload{
		Message: DefaultErrorMessage,
		Kind:    ErrorKindTransport,
		Err:     err,
	}
	if a.deliver(context.Background(), EventError, failure) {
		a.m.fail(a, err)
	}
}

// deliver dispatches payload if a is still the current attempt, and reports
// whether it was.
func (a *attempt) deliver(ctx context.Context, eventType EventType, payload Payload) bool {
	if !a.m.isCurrent(a) {
		return false
	}
	a.m.dispatcher.Dispatch(ctx, eventType, payload)
	return true
}

func closeStream(stream Stream, logger *zap.Logger) {
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		logger.Debug("Error closing event stream", zap.Error(err))
	}
}
