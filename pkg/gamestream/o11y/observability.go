// Package o11y defines the metrics and tracing abstractions used by gamestream,
// along with the fixed set of instruments the stream manager records.
package o11y

import (
	"context"
	"time"
)

// MetricsProvider abstracts metrics collection (OpenTelemetry, Prometheus, ...)
type MetricsProvider interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
	Gauge(name string) Gauge
}

// TracingProvider abstracts distributed tracing
type TracingProvider interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Counter represents a monotonically increasing metric
type Counter interface {
	Add(ctx context.Context, value int64, labels ...Label)
}

// Histogram records distribution of values
type Histogram interface {
	Record(ctx context.Context, value float64, labels ...Label)
}

// Gauge represents a value that can go up and down
type Gauge interface {
	Set(ctx context.Context, value float64, labels ...Label)
}

// Span represents a unit of work in a trace
type Span interface {
	SetAttributes(labels ...Label)
	SetStatus(code SpanStatusCode, description string)
	End()
}

// Label represents a key-value pair for metrics and tracing
type Label struct {
	Key   string
	Value string
}

// SpanStatusCode represents the status of a span
type SpanStatusCode int

const (
	SpanStatusUnset SpanStatusCode = iota
	SpanStatusOK
	SpanStatusError
)

const (
	MetricConnectAttempts    = "gamestream_connect_attempts_total"
	MetricConnectionsOpened  = "gamestream_connections_opened_total"
	MetricTransportFailures  = "gamestream_transport_failures_total"
	MetricReconnectsPlanned  = "gamestream_reconnects_scheduled_total"
	MetricEventsDispatched   = "gamestream_events_dispatched_total"
	MetricSubscriberErrors   = "gamestream_subscriber_errors_total"
	MetricReconnectDelay     = "gamestream_reconnect_delay_seconds"
	MetricActiveSubscribers  = "gamestream_subscribers"
	SpanConnect              = "gamestream.connect"
	LabelEventType           = "event_type"
	LabelErrorKind           = "kind"
	LabelStatus              = "status"
	LabelStatusSuccess       = "success"
	LabelStatusError         = "error"
	LabelStatusNoCredentials = "no_credentials"
)

// Instruments holds the pre-created gamestream instruments. Members are nil
// when no MetricsProvider is configured; the helpers below treat nil as no-op.
type Instruments struct {
	ConnectAttempts   Counter
	ConnectionsOpened Counter
	TransportFailures Counter
	ReconnectsPlanned Counter
	EventsDispatched  Counter
	SubscriberErrors  Counter
	ReconnectDelay    Histogram
	Subscribers       Gauge
}

// NewInstruments creates every gamestream instrument from provider.
func NewInstruments(provider MetricsProvider) *Instruments {
	if provider == nil {
		return &Instruments{}
	}

	return &Instruments{
		ConnectAttempts:   provider.Counter(MetricConnectAttempts),
		ConnectionsOpened: provider.Counter(MetricConnectionsOpened),
		TransportFailures: provider.Counter(MetricTransportFailures),
		ReconnectsPlanned: provider.Counter(MetricReconnectsPlanned),
		EventsDispatched:  provider.Counter(MetricEventsDispatched),
		SubscriberErrors:  provider.Counter(MetricSubscriberErrors),
		ReconnectDelay:    provider.Histogram(MetricReconnectDelay),
		Subscribers:       provider.Gauge(MetricActiveSubscribers),
	}
}

// Inc adds one to c, if set.
func Inc(ctx context.Context, c Counter, labels ...Label) {
	if c != nil {
		c.Add(ctx, 1, labels...)
	}
}

// RecordDelay records a scheduled reconnect delay in seconds.
func (i *Instruments) RecordDelay(ctx context.Context, d time.Duration) {
	if i.ReconnectDelay != nil {
		i.ReconnectDelay.Record(ctx, d.Seconds())
	}
}

// SetSubscribers reports the current subscriber count for an event type.
func (i *Instruments) SetSubscribers(ctx context.Context, eventType string, n int) {
	if i.Subscribers != nil {
		i.Subscribers.Set(ctx, float64(n), Label{Key: LabelEventType, Value: eventType})
	}
}
