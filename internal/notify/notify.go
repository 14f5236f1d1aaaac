// Package notify delivers prayer notifications to the log, to devices over
// MQTT, or to several sinks at once.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notifier delivers a short notification. Delivery is best effort; the
// engine logs returned errors and carries on.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Log writes notifications to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, title, message string) error {
	l.logger.Info(title, zap.String("message", message))
	return nil
}

// Multi fans a notification out to every sink, collecting their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
