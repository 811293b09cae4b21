package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tsarna/gamestream/pkg/gamestream"
	"github.com/tsarna/gamestream/pkg/gamestream/transform"
	"go.uber.org/zap"
)

// printingSubscriber writes each event as "<event>\t<json>".
type printingSubscriber struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
	filter *transform.JqFilter
	delta  *transform.StateDelta
}

func newPrintingSubscriber(out io.Writer, logger *zap.Logger) *printingSubscriber {
	return &printingSubscriber{out: out, logger: logger}
}

func (s *printingSubscriber) WithFilter(filter *transform.JqFilter) *printingSubscriber {
	s.filter = filter
	return s
}

func (s *printingSubscriber) WithDelta(delta *transform.StateDelta) *printingSubscriber {
	s.delta = delta
	return s
}

func (s *printingSubscriber) OnEvent(ctx context.Context, eventType gamestream.EventType, payload gamestream.Payload) error {
	var value any
	var err error

	switch p := payload.(type) {
	case gamestream.ConnectedPayload:
		if s.delta != nil {
			s.delta.Reset()
		}
		value, err = transform.ToPrimitive(p)
	case gamestream.GameStatePayload:
		if s.delta != nil {
			delta, deltaErr := s.delta.Apply(p)
			if deltaErr == nil && len(delta) == 0 {
				return nil
			}
			value, err = delta, deltaErr
		} else {
			value, err = transform.ToPrimitive(p)
		}
	default:
		value, err = transform.ToPrimitive(payload)
	}
	if err != nil {
		return err
	}

	results := []any{value}
	if s.filter != nil {
		if results, err = s.filter.ApplyValue(ctx, eventType, value); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, result := range results {
		jsonBytes, err := json.Marshal(result)
		if err != nil {
			s.logger.Warn("Failed to marshal event to JSON",
				zap.String("event", string(eventType)),
				zap.Error(err),
			)
			continue
		}
		fmt.Fprintf(s.out, "%s\t%s\n", eventType, jsonBytes)
	}
	return nil
}
