package subutils

import (
	"context"
	"errors"
	"sync"

	"github.com/tsarna/gamestream/pkg/gamestream"
	"go.uber.org/zap"
)

var (
	ErrQueueFull        = errors.New("subscriber queue is full")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

type asyncEvent struct {
	ctx       context.Context
	eventType gamestream.EventType
	payload   gamestream.Payload
}

// AsyncQueueingSubscriber wraps another subscriber and delivers events to it
// from a background goroutine through a buffered queue, so a slow consumer
// does not hold up the stream reader. Events are delivered in the order they
// were queued.
//
// Errors returned by the wrapped subscriber cannot reach the dispatcher; they
// are logged instead.
type AsyncQueueingSubscriber struct {
	wrapped   gamestream.Subscriber
	logger    *zap.Logger
	queue     chan asyncEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsyncQueueingSubscriber creates an AsyncQueueingSubscriber with the given
// queue size (100 when <= 0). Call Start to begin delivery and Close to stop.
//
//	async := subutils.NewAsyncQueueingSubscriber(printer, 100).WithLogger(logger).Start()
//	defer async.Close()
//	manager.On(gamestream.EventGameState, async)
func NewAsyncQueueingSubscriber(wrapped gamestream.Subscriber, queueSize int) *AsyncQueueingSubscriber {
	if queueSize <= 0 {
		queueSize = 100
	}

	return &AsyncQueueingSubscriber{
		wrapped: wrapped,
		logger:  zap.NewNop(),
		queue:   make(chan asyncEvent, queueSize),
		done:    make(chan struct{}),
	}
}

// WithLogger sets the logger used for errors from the wrapped subscriber.
// Must be called before Start.
func (a *AsyncQueueingSubscriber) WithLogger(logger *zap.Logger) *AsyncQueueingSubscriber {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Start begins processing events in a background goroutine.
func (a *AsyncQueueingSubscriber) Start() *AsyncQueueingSubscriber {
	a.wg.Add(1)
	go a.processQueue()
	return a
}

func (a *AsyncQueueingSubscriber) processQueue() {
	defer a.wg.Done()

	for {
		select {
		case ev := <-a.queue:
			a.deliver(ev)
		case <-a.done:
			a.drainQueue()
			return
		}
	}
}

func (a *AsyncQueueingSubscriber) drainQueue() {
	for {
		select {
		case ev := <-a.queue:
			a.deliver(ev)
		default:
			return
		}
	}
}

func (a *AsyncQueueingSubscriber) deliver(ev asyncEvent) {
	if err := a.wrapped.OnEvent(ev.ctx, ev.eventType, ev.payload); err != nil {
		a.logger.Warn("Queued subscriber failed",
			zap.String("event", string(ev.eventType)),
			zap.Error(err),
		)
	}
}

// OnEvent queues the event and returns immediately.
func (a *AsyncQueueingSubscriber) OnEvent(ctx context.Context, eventType gamestream.EventType, payload gamestream.Payload) error {
	if a.IsClosed() {
		return ErrSubscriberClosed
	}

	select {
	case a.queue <- asyncEvent{ctx: ctx, eventType: eventType, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the background goroutine after delivering everything already
// queued. It is safe to call more than once.
func (a *AsyncQueueingSubscriber) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
	})
	return nil
}

func (a *AsyncQueueingSubscriber) QueueSize() int {
	return len(a.queue)
}

func (a *AsyncQueueingSubscriber) QueueCapacity() int {
	return cap(a.queue)
}

func (a *AsyncQueueingSubscriber) IsClosed() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}
