// Package service implements the application use cases on top of the ports
package service

import (
	"errors"
	"time"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrAIUnavailable is returned when an operation needs an AI provider that
// is not configured or failed to answer.
var ErrAIUnavailable = errors.New("ai service unavailable")

// Clock returns the current time. Services call it once per operation.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
