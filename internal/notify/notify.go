// Package notify delivers watering notifications.
//
// A Notifier sends one plain-text message with a subject line. Station
// drivers never retry a failed send, and a failure never undoes or delays
// a watering that already happened.
package notify

import (
	"context"
	"errors"
)

// ErrSendFailed wraps every delivery failure, including timeouts.
var ErrSendFailed = errors.New("notify: send failed")

// Message is a plain-text notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers messages to the configured recipient.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, msg Message) error

// Send calls f(ctx, msg).
func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Logger is the logging interface used by LogNotifier.
type Logger interface {
	Info(msg string, args ...any)
}

// LogNotifier writes messages to the log instead of sending them. It is
// used when notifications are disabled.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs msg and never fails.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification", "subject", msg.Subject, "body", msg.Body)
	return nil
}
