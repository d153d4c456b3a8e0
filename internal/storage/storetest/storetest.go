// Package storetest holds the behavioural contract every storage backend
// must satisfy, run against each backend from its own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/storage"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
	quiet   = 300 * time.Millisecond
)

// Harness builds a fresh, initialized store per subtest.
type Harness struct {
	New func(t *testing.T) storage.Provider
	// Outage, when set, makes the store unreachable and returns a func that
	// restores it.
	Outage func(t *testing.T, s storage.Provider) (restore func())
}

// Delivery is one OnChange call.
type Delivery struct {
	Value string
	OK    bool
}

// Recorder is a Listener that keeps every callback for inspection.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	cancels    []error
}

func (r *Recorder) OnChange(value string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Value: value, OK: ok})
}

func (r *Recorder) OnCancelled(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, err)
}

// Deliveries returns a copy of every OnChange call so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// Count returns the number of OnChange calls.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

// Last returns the most recent OnChange call.
func (r *Recorder) Last() (Delivery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		return Delivery{}, false
	}
	return r.deliveries[len(r.deliveries)-1], true
}

// Cancels returns every OnCancelled error.
func (r *Recorder) Cancels() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.cancels...)
}

// WaitForLast blocks until the most recent delivery equals want.
func (r *Recorder) WaitForLast(t *testing.T, want Delivery) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, ok := r.Last()
		return ok && got == want
	}, waitFor, tick, "never delivered %+v; got %+v", want, r.Deliveries())
}

// Run exercises the store contract.
func Run(t *testing.T, h Harness) {
	const field = "selectedDate"
	ctx := context.Background()

	t.Run("ReadAbsent", func(t *testing.T) {
		s := h.New(t)
		_, ok, err := s.Read(ctx, field)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		s := h.New(t)
		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))

		v, ok, err := s.Read(ctx, field)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2999-01-01 00:00", v)

		require.NoError(t, s.Write(ctx, field, ""))
		_, ok, err = s.Read(ctx, field)
		require.NoError(t, err)
		assert.False(t, ok, "empty write should clear the field")
	})

	t.Run("FieldsAreIndependent", func(t *testing.T) {
		s := h.New(t)
		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))
		require.NoError(t, s.Write(ctx, "notify_update", "2030-05-05 05:05"))

		v, _, err := s.Read(ctx, field)
		require.NoError(t, err)
		assert.Equal(t, "2999-01-01 00:00", v)
	})

	t.Run("ReplayOnSubscribe", func(t *testing.T) {
		s := h.New(t)
		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))

		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		rec.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})
		assert.Equal(t, Delivery{Value: "2999-01-01 00:00", OK: true}, rec.Deliveries()[0])
	})

	t.Run("ReplayAbsent", func(t *testing.T) {
		s := h.New(t)
		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		rec.WaitForLast(t, Delivery{})
	})

	t.Run("EchoesOwnWrites", func(t *testing.T) {
		s := h.New(t)
		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()
		rec.WaitForLast(t, Delivery{})

		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))
		rec.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})

		require.NoError(t, s.Write(ctx, field, ""))
		rec.WaitForLast(t, Delivery{})
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		s := h.New(t)
		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		for _, v := range []string{"2990-01-01 00:00", "2991-01-01 00:00", "2992-01-01 00:00"} {
			require.NoError(t, s.Write(ctx, field, v))
		}
		rec.WaitForLast(t, Delivery{Value: "2992-01-01 00:00", OK: true})
	})

	t.Run("IndependentSubscriptions", func(t *testing.T) {
		s := h.New(t)
		a, b := &Recorder{}, &Recorder{}
		subA, err := s.Subscribe(field, a)
		require.NoError(t, err)
		subB, err := s.Subscribe(field, b)
		require.NoError(t, err)
		defer subB.Unsubscribe()
		assert.NotEqual(t, subA.ID(), subB.ID())

		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))
		a.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})
		b.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})

		subA.Unsubscribe()
		subA.Unsubscribe()
		seen := a.Count()

		require.NoError(t, s.Write(ctx, field, "2998-01-01 00:00"))
		b.WaitForLast(t, Delivery{Value: "2998-01-01 00:00", OK: true})
		assert.Never(t, func() bool { return a.Count() != seen }, quiet, tick,
			"unsubscribed listener received a delivery")
	})

	t.Run("OtherFieldsNotDelivered", func(t *testing.T) {
		s := h.New(t)
		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()
		rec.WaitForLast(t, Delivery{})

		require.NoError(t, s.Write(ctx, "notify_update", "2999-01-01 00:00"))
		assert.Never(t, func() bool { return rec.Count() != 1 }, quiet, tick)
	})

	if h.Outage == nil {
		return
	}

	t.Run("RedeliversAfterRecovery", func(t *testing.T) {
		s := h.New(t)
		require.NoError(t, s.Write(ctx, field, "2999-01-01 00:00"))

		rec := &Recorder{}
		sub, err := s.Subscribe(field, rec)
		require.NoError(t, err)
		defer sub.Unsubscribe()
		rec.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})
		before := rec.Count()

		restore := h.Outage(t, s)
		require.Eventually(t, func() bool { return len(rec.Cancels()) > 0 }, waitFor, tick,
			"outage was not reported through OnCancelled")
		assert.True(t, errors.Is(rec.Cancels()[0], errors.ErrSubscriptionCancelled))

		restore()
		require.Eventually(t, func() bool { return rec.Count() > before }, waitFor, tick,
			"latest value was not redelivered after recovery")
		rec.WaitForLast(t, Delivery{Value: "2999-01-01 00:00", OK: true})
	})
}
