package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
)

// Hub fans field values out to subscriptions. Every backend owns one and
// publishes into it; the hub gives each subscription its own ordered queue
// and delivery goroutine so a slow listener never blocks a writer.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*subscription
	last   map[string]fieldValue
	closed bool
}

type fieldValue struct {
	value string
	ok    bool
}

type event struct {
	value string
	ok    bool
	err   error
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]*subscription),
		last: make(map[string]fieldValue),
	}
}

// Subscribe registers l for field and queues the replay. The replay is the
// latest value published for field if any, otherwise the value the caller
// just read from the backend.
func (h *Hub) Subscribe(field string, l Listener, value string, ok bool) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("%w: store closed", errors.ErrSubscriptionCancelled)
	}

	cur, seen := h.last[field]
	if !seen {
		cur = fieldValue{value: value, ok: ok}
		h.last[field] = cur
	}

	sub := &subscription{
		id:    uuid.NewString(),
		field: field,
		l:     l,
		hub:   h,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	h.subs[sub.id] = sub
	sub.enqueue(event{value: cur.value, ok: cur.ok})
	go sub.run()

	logger.Debug("Subscribed", "field", field, "subscription", sub.id)
	return sub, nil
}

// Publish records value as the latest for field and queues it for every
// subscription on that field, even when it equals the previous value.
func (h *Hub) Publish(field, value string, ok bool) {
	if !ok {
		value = ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[field] = fieldValue{value: value, ok: ok}
	for _, sub := range h.subs {
		if sub.field == field {
			sub.enqueue(event{value: value, ok: ok})
		}
	}
}

// Latest returns the last value published for field. seen is false when
// nothing has been published or replayed for it yet.
func (h *Hub) Latest(field string) (value string, ok bool, seen bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, seen := h.last[field]
	return cur.value, cur.ok, seen
}

// Cancel reports to every subscription that live delivery stopped.
func (h *Hub) Cancel(cause error) {
	err := cause
	if !errors.Is(err, errors.ErrSubscriptionCancelled) {
		err = fmt.Errorf("%w: %w", errors.ErrSubscriptionCancelled, cause)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		sub.enqueue(event{err: err})
	}
}

// Fields returns the distinct fields with at least one subscription.
func (h *Hub) Fields() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := make(map[string]struct{})
	for _, sub := range h.subs {
		set[sub.field] = struct{}{}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unsubscribes everything and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

type subscription struct {
	id    string
	field string
	l     Listener
	hub   *Hub

	qmu   sync.Mutex
	queue []event
	wake  chan struct{}
	done  chan struct{}

	// mu is held for the duration of a callback
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *subscription) ID() string { return s.id }

// Unsubscribe waits for an in-flight callback to return, so no callback
// runs after it does.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.hub.remove(s.id)
		logger.Debug("Unsubscribed", "field", s.field, "subscription", s.id)
	})
}

func (s *subscription) enqueue(ev event) {
	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) next() (event, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			if !s.deliver(ev) {
				return
			}
		}
	}
}

func (s *subscription) deliver(ev event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if ev.err != nil {
		s.l.OnCancelled(ev.err)
	} else {
		s.l.OnChange(ev.value, ev.ok)
	}
	return true
}
