package memory

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage"
	"github.com/julianstephens/tminus/internal/storage/storetest"
)

func newTestStore(t *testing.T) storage.Provider {
	s := New()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, storetest.Harness{
		New: newTestStore,
		Outage: func(t *testing.T, p storage.Provider) func() {
			s := p.(*Store)
			s.SetAvailable(false)
			return func() { s.SetAvailable(true) }
		},
	})
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()
	s.SetAvailable(false)

	_, _, err := s.Read(ctx, "selectedDate")
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	err = s.Write(ctx, "selectedDate", "2999-01-01 00:00")
	assert.True(t, errors.Is(err, errors.ErrStoreWrite))
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	boom := stderrors.New("disk full")
	s.FailWrites(boom)
	err := s.Write(ctx, "selectedDate", "2999-01-01 00:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreWrite))
	assert.True(t, errors.Is(err, boom))

	_, ok, err := s.Read(ctx, "selectedDate")
	require.NoError(t, err)
	assert.False(t, ok, "failed write must not change the field")

	s.FailWrites(nil)
	require.NoError(t, s.Write(ctx, "selectedDate", "2999-01-01 00:00"))
}

func TestSettingsRoundTrip(t *testing.T) {
	s := New()
	defer s.Close()

	got, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), got)

	got.Timezone = "UTC"
	require.NoError(t, s.SaveSettings(got))
	again, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "UTC", again.Timezone)
}

func TestCloseRejectsSubscriptions(t *testing.T) {
	s := New()
	rec := &storetest.Recorder{}
	_, err := s.Subscribe("selectedDate", rec)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Subscribers())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Subscribers())

	_, err = s.Subscribe("selectedDate", rec)
	assert.True(t, errors.Is(err, errors.ErrSubscriptionCancelled))
}
