package subutils

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tsarna/gamestream/pkg/gamestream"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingSubscriber wraps another subscriber and logs every event it receives.
// If the wrapped subscriber is nil, it acts as a standalone logging subscriber.
type LoggingSubscriber struct {
	wrapped  gamestream.Subscriber
	logger   *zap.Logger
	logLevel zapcore.Level
	name     string
}

// NewLoggingSubscriber creates a new LoggingSubscriber that wraps another subscriber.
func NewLoggingSubscriber(wrapped gamestream.Subscriber, logger *zap.Logger, logLevel zapcore.Level) *LoggingSubscriber {
	return NewNamedLoggingSubscriber(wrapped, logger, logLevel, "LoggingSubscriber")
}

// NewNamedLoggingSubscriber creates a new LoggingSubscriber with a custom name
// for identification in logs.
func NewNamedLoggingSubscriber(wrapped gamestream.Subscriber, logger *zap.Logger, logLevel zapcore.Level, name string) *LoggingSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingSubscriber{
		wrapped:  wrapped,
		logger:   logger,
		logLevel: logLevel,
		name:     name,
	}
}

// OnEvent logs the event and calls the wrapped subscriber if present.
func (l *LoggingSubscriber) OnEvent(ctx context.Context, eventType gamestream.EventType, payload gamestream.Payload) error {
	if ce := l.logger.Check(l.logLevel, "OnEvent called"); ce != nil {
		ce.Write(
			zap.String("subscriber", l.name),
			zap.String("event", string(eventType)),
			zap.String("payload", payloadString(payload)),
			zap.Bool("hasWrapped", l.wrapped != nil),
		)
	}

	if l.wrapped != nil {
		return l.wrapped.OnEvent(ctx, eventType, payload)
	}
	return nil
}

func payloadString(payload gamestream.Payload) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%+v", payload)
	}
	return string(data)
}
