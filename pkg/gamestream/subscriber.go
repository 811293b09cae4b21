package gamestream

import (
	"context"
)

// Subscriber receives events dispatched for the event types it is registered on.
//
// Registrations are matched for removal with ==, so the dynamic type of a
// Subscriber must be comparable. Pointer types are the usual choice; use
// SubscriberFunc to register a plain function.
type Subscriber interface {
	OnEvent(ctx context.Context, eventType EventType, payload Payload) error
}

// FuncSubscriber adapts a function to the Subscriber interface. Each value
// returned by SubscriberFunc is a distinct registration identity.
type FuncSubscriber struct {
	fn func(ctx context.Context, eventType EventType, payload Payload) error
}

// SubscriberFunc wraps fn in a new FuncSubscriber. Keep the returned pointer
// to unregister it later.
func SubscriberFunc(fn func(ctx context.Context, eventType EventType, payload Payload) error) *FuncSubscriber {
	return &FuncSubscriber{fn: fn}
}

func (f *FuncSubscriber) OnEvent(ctx context.Context, eventType EventType, payload Payload) error {
	if f.fn == nil {
		return nil
	}
	return f.fn(ctx, eventType, payload)
}

// GameStateFunc wraps a handler that only cares about game state snapshots.
// Payloads of any other type are ignored.
func GameStateFunc(fn func(ctx context.Context, state GameStatePayload) error) *FuncSubscriber {
	return SubscriberFunc(func(ctx context.Context, _ EventType, payload Payload) error {
		if state, ok := payload.(GameStatePayload); ok {
			return fn(ctx, state)
		}
		return nil
	})
}

// GameWonFunc wraps a handler for game won notifications.
func GameWonFunc(fn func(ctx context.Context, won GameWonPayload) error) *FuncSubscriber {
	return SubscriberFunc(func(ctx context.Context, _ EventType, payload Payload) error {
		if won, ok := payload.(GameWonPayload); ok {
			return fn(ctx, won)
		}
		return nil
	})
}

// ErrorFunc wraps a handler for the error channel.
func ErrorFunc(fn func(ctx context.Context, failure ErrorPayload) error) *FuncSubscriber {
	return SubscriberFunc(func(ctx context.Context, _ EventType, payload Payload) error {
		if failure, ok := payload.(ErrorPayload); ok {
			return fn(ctx, failure)
		}
		return nil
	})
}
