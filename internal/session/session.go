// Package session drives one countdown view from the shared target field.
//
// A Session subscribes to the store, turns each delivered value into a state
// transition and ticks once a second while a future target is set. Every
// mutation and every display update happens under the session's mutex, and a
// generation counter retires ticker goroutines belonging to earlier targets
// or to a closed session.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/tminus/internal/clock"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/fanout"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/observability"
	"github.com/julianstephens/tminus/internal/storage"
)

// Display renders session output. Calls are made while the session lock is
// held, so implementations must not call back into the session.
type Display interface {
	SetText(text string)
	SetState(state models.SessionState)
	ShowError(msg string)
	// ShowStatus sets a secondary status line; an empty msg clears it.
	ShowStatus(msg string)
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithNotifier sets the notifier told about successful writes.
func WithNotifier(n fanout.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithLocation sets the zone stored values are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithField overrides the shared field the session follows.
func WithField(field string) Option {
	return func(s *Session) {
		if field != "" {
			s.field = field
		}
	}
}

// Session is a single countdown view. It implements storage.Listener.
type Session struct {
	id       string
	store    storage.TargetStore
	display  Display
	clock    clock.Clock
	notifier fanout.Notifier
	loc      *time.Location
	field    string
	log      *log.Logger

	mu       sync.Mutex
	state    models.SessionState
	target   models.TargetTime
	ticker   clock.Ticker
	stopTick chan struct{}
	gen      uint64
	degraded bool
	closed   bool
	sub      storage.Subscription

	notifying sync.WaitGroup
}

var _ storage.Listener = (*Session)(nil)

// New returns an idle session. Call Start to begin following the store.
func New(store storage.TargetStore, display Display, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		store:   store,
		display: display,
		clock:   clock.New(),
		loc:     time.Local,
		field:   constants.FieldSelectedDate,
		state:   models.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.With("session", s.id, "field", s.field)
	return s
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Start reads the current value and subscribes for changes. An unreachable
// store is not an error here: the session shows a connecting status and
// waits for the subscription to deliver once the store recovers.
func (s *Session) Start(ctx context.Context) error {
	value, ok, err := s.store.Read(ctx, s.field)
	if err != nil {
		s.log.Warn("Initial read failed", "error", err)
		s.mu.Lock()
		if !s.closed {
			s.degraded = true
			s.display.ShowStatus(constants.TextConnecting)
		}
		s.mu.Unlock()
	} else {
		s.OnExternalTargetChange(value, ok)
	}

	sub, err := s.store.Subscribe(s.field, s)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.field, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	s.log.Debug("Session started", "subscription", sub.ID())
	return nil
}

// OnChange is called by the store subscription.
func (s *Session) OnChange(value string, ok bool) {
	observability.RecordDelivery()
	s.OnExternalTargetChange(value, ok)
}

// OnCancelled is called when live delivery stops. The last known display is
// kept; the store redelivers once it recovers.
func (s *Session) OnCancelled(err error) {
	observability.RecordCancellation()
	s.log.Warn("Live updates interrupted", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.degraded = true
	s.display.ShowStatus(constants.TextLiveUpdatesLost)
}

// OnExternalTargetChange applies a raw stored value. ok is false when the
// field is absent.
func (s *Session) OnExternalTargetChange(raw string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.degraded {
		s.degraded = false
		s.display.ShowStatus("")
	}

	s.stopTickerLocked()

	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		s.target = models.TargetTime{}
		s.setStateLocked(models.StateIdle, constants.TextNoTimer)
		observability.SetRemaining(0)
		return
	}

	target, err := models.ParseTargetTime(raw, s.loc)
	if err != nil {
		s.log.Debug("Ignoring malformed target", "raw", raw, "error", err)
		s.target = models.TargetTime{}
		s.setStateLocked(models.StateInvalid, constants.TextInvalidDate)
		observability.SetRemaining(0)
		return
	}
	s.target = target

	remaining := models.ComputeRemaining(target.Time(), s.clock.Now())
	observability.SetRemaining(remaining.TotalSeconds())
	if remaining.Completed {
		s.setStateLocked(models.StateCompleted, constants.TextComplete)
		return
	}

	s.setStateLocked(models.StateRunning, remaining.String())
	s.startTickerLocked()
}

// Submit writes target to the store. The display only changes once the
// store delivers the value back. A failed write is reported to the display
// and returned wrapping errors.ErrStoreWrite.
func (s *Session) Submit(ctx context.Context, target models.TargetTime) error {
	if target.IsZero() {
		return fmt.Errorf("%w: empty target", errors.ErrParse)
	}
	value := target.Time().In(s.loc).Format(constants.TargetFormat)
	return s.write(ctx, value)
}

// Clear removes the target for every subscriber.
func (s *Session) Clear(ctx context.Context) error {
	return s.write(ctx, "")
}

func (s *Session) write(ctx context.Context, value string) error {
	err := s.store.Write(ctx, s.field, value)
	observability.RecordWrite(err)
	if err != nil {
		s.log.Error("Target write failed", "value", value, "error", err)
		s.mu.Lock()
		if !s.closed {
			s.display.ShowError(constants.TextSaveFailed)
		}
		s.mu.Unlock()
		if errors.Is(err, errors.ErrStoreWrite) {
			return err
		}
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, err)
	}

	s.log.Info("Target written", "value", value)
	s.notify(value)
	return nil
}

func (s *Session) notify(value string) {
	if s.notifier == nil {
		return
	}
	s.notifying.Add(1)
	go func() {
		defer s.notifying.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*constants.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, value); err != nil {
			s.log.Warn("Fan-out incomplete", "error", err)
		}
	}()
}

// WaitNotifications blocks until notifications started by earlier writes
// finish or ctx is done. Short-lived commands call it before exiting.
func (s *Session) WaitNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifying.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops ticking and drops the subscription. Once it returns no
// further display call is made. Close is idempotent but must not be called
// from a Display method.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTickerLocked()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.log.Debug("Session closed")
}

// State returns the current state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the parsed target; ok is false when idle or invalid.
func (s *Session) Target() (models.TargetTime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, !s.target.IsZero()
}

// Remaining computes the time left against the session clock. ok is false
// when there is no valid target.
func (s *Session) Remaining() (models.RemainingDuration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target.IsZero() {
		return models.RemainingDuration{}, false
	}
	return models.ComputeRemaining(s.target.Time(), s.clock.Now()), true
}

func (s *Session) setStateLocked(state models.SessionState, text string) {
	if s.state != state {
		s.log.Debug("State changed", "from", s.state, "to", state)
	}
	s.state = state
	s.display.SetState(state)
	s.display.SetText(text)
}

func (s *Session) startTickerLocked() {
	s.gen++
	gen := s.gen
	t := s.clock.NewTicker(constants.TickInterval)
	stop := make(chan struct{})
	s.ticker = t
	s.stopTick = stop
	go s.runTicker(t, stop, gen)
}

// stopTickerLocked retires the current ticker goroutine, if any.
func (s *Session) stopTickerLocked() {
	s.gen++
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stopTick)
		s.ticker = nil
		s.stopTick = nil
	}
}

func (s *Session) runTicker(t clock.Ticker, stop <-chan struct{}, gen uint64) {
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if !s.tick(gen) {
				return
			}
		}
	}
}

// tick recomputes the remaining time from the clock. It returns false once
// the ticker belonging to gen should exit.
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return false
	}

	remaining := models.ComputeRemaining(s.target.Time(), s.clock.Now())
	observability.RecordTick(remaining.TotalSeconds())
	if remaining.Completed {
		s.stopTickerLocked()
		s.setStateLocked(models.StateCompleted, constants.TextComplete)
		s.log.Info("Countdown complete", "target", s.target.String())
		return false
	}
	s.display.SetText(remaining.String())
	return true
}
