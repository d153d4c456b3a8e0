// Package fanout tells interested parties that the shared target changed.
// Delivery is best effort: failures are logged and counted, never retried.
package fanout

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/observability"
)

// Notifier is told about every successfully written target value. An empty
// value means the target was cleared.
type Notifier interface {
	Notify(ctx context.Context, value string) error
}

// Sink is a named Notifier.
type Sink interface {
	Notifier
	Name() string
}

// Event is the payload the webhook and kafka sinks publish.
type Event struct {
	Field   string    `json:"field"`
	Value   string    `json:"value"`
	Cleared bool      `json:"cleared"`
	SentAt  time.Time `json:"sent_at"`
}

func newEvent(value string) Event {
	return Event{
		Field:   constants.FieldSelectedDate,
		Value:   value,
		Cleared: value == "",
		SentAt:  time.Now().UTC(),
	}
}

// Message renders value as a human readable line.
func Message(value string) string {
	if value == "" {
		return "Countdown cleared"
	}
	return fmt.Sprintf("Countdown target set to %s", value)
}

// Multi notifies every sink concurrently, each under its own timeout.
type Multi struct {
	sinks   []Sink
	timeout time.Duration
}

// NewMulti returns a Multi over sinks. Nil sinks are dropped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{timeout: constants.NotifyTimeout}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Names returns the sink names in registration order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Notify waits for every sink and returns their failures joined.
func (m *Multi) Notify(ctx context.Context, value string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, sink := range m.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()

			sctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			err := sink.Notify(sctx, value)
			observability.RecordNotification(sink.Name(), err)
			if err != nil {
				logger.Warn("Notification failed", "sink", sink.Name(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
				mu.Unlock()
				return
			}
			logger.Debug("Notification sent", "sink", sink.Name())
		}(sink)
	}
	wg.Wait()

	return stderrors.Join(errs...)
}

// Close releases sinks that hold connections.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return stderrors.Join(errs...)
}
