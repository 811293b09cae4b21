package gamestream

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/tsarna/gamestream/pkg/gamestream/o11y"
	"go.uber.org/zap"
)

var (
	ErrNilSubscriber = errors.New("subscriber must not be nil")
	ErrNotComparable = errors.New("subscriber is not comparable")
)

// Dispatcher keeps an ordered list of subscribers per event type and fans
// decoded payloads out to them.
//
// Subscribers are called synchronously on the goroutine that calls Dispatch,
// in registration order. A failing subscriber (error or panic) is logged and
// counted and does not stop delivery to the others.
type Dispatcher struct {
	mu            sync.RWMutex
	subscriptions map[EventType][]Subscriber
	logger        *zap.Logger
	metrics       *o11y.Instruments
}

// NewDispatcher creates an empty Dispatcher. A nil logger is replaced by a nop logger.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		subscriptions: make(map[EventType][]Subscriber),
		logger:        logger,
		metrics:       o11y.NewInstruments(nil),
	}
}

// WithMetrics records dispatch and subscriber metrics through provider.
func (d *Dispatcher) WithMetrics(provider o11y.MetricsProvider) *Dispatcher {
	d.mu.Lock()
	d.metrics = o11y.NewInstruments(provider)
	d.mu.Unlock()
	return d
}

// On appends subscriber to the list for eventType. Registering the same
// subscriber more than once is allowed; every entry is notified.
func (d *Dispatcher) On(eventType EventType, subscriber Subscriber) error {
	if subscriber == nil {
		return ErrNilSubscriber
	}
	if !isComparable(subscriber) {
		return fmt.Errorf("%w: %T", ErrNotComparable, subscriber)
	}

	d.mu.Lock()
	d.subscriptions[eventType] = append(d.subscriptions[eventType], subscriber)
	count := len(d.subscriptions[eventType])
	metrics := d.metrics
	d.mu.Unlock()

	metrics.SetSubscribers(context.Background(), string(eventType), count)
	return nil
}

// Off removes the first registration of subscriber for eventType and reports
// whether one was found.
func (d *Dispatcher) Off(eventType EventType, subscriber Subscriber) bool {
	if subscriber == nil || !isComparable(subscriber) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subscriptions[eventType]
	index := -1
	for i, s := range subs {
		if s == subscriber {
			index = i
			break
		}
	}
	if index == -1 {
		return false
	}

	// Copy so that a Dispatch holding the previous slice is unaffected.
	remaining := make([]Subscriber, 0, len(subs)-1)
	remaining = append(remaining, subs[:index]...)
	remaining = append(remaining, subs[index+1:]...)
	if len(remaining) == 0 {
		delete(d.subscriptions, eventType)
	} else {
		d.subscriptions[eventType] = remaining
	}
	d.metrics.SetSubscribers(context.Background(), string(eventType), len(remaining))
	return true
}

// isComparable reports whether == on subscriber is safe. The dynamic value is
// checked, since a comparable struct type may still hold a func in an
// interface field.
func isComparable(subscriber Subscriber) bool {
	return reflect.ValueOf(subscriber).Comparable()
}

// Subscribers returns the number of registrations for eventType.
func (d *Dispatcher) Subscribers(eventType EventType) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscriptions[eventType])
}

// Dispatch delivers payload to every subscriber registered for eventType at
// the time of the call. Unknown event types are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType EventType, payload Payload) {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	subs := d.subscriptions[eventType]
	metrics := d.metrics
	d.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	o11y.Inc(ctx, metrics.EventsDispatched, o11y.Label{Key: o11y.LabelEventType, Value: string(eventType)})

	for i, subscriber := range subs {
		if err := d.notify(ctx, subscriber, eventType, payload); err != nil {
			d.logger.Error("Subscriber failed",
				zap.String("event_type", string(eventType)),
				zap.Int("index", i),
				zap.String("subscriber", fmt.Sprintf("%T", subscriber)),
				zap.Error(err),
			)
			o11y.Inc(ctx, metrics.SubscriberErrors, o11y.Label{Key: o11y.LabelEventType, Value: string(eventType)})
		}
	}
}

// notify calls one subscriber, turning a panic into an error.
func (d *Dispatcher) notify(ctx context.Context, subscriber Subscriber, eventType EventType, payload Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()

	return subscriber.OnEvent(ctx, eventType, payload)
}
