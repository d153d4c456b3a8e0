// Package memory is an in-process store. It backs tests and single-process
// runs, and can simulate outages.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage"
)

type Store struct {
	mu        sync.Mutex
	fields    map[string]string
	settings  map[string]string
	available bool
	writeErr  error
	hub       *storage.Hub
}

var _ storage.Provider = (*Store)(nil)

func New() *Store {
	return &Store{
		fields:    make(map[string]string),
		settings:  models.SettingsToMap(models.DefaultSettings()),
		available: true,
		hub:       storage.NewHub(),
	}
}

func (s *Store) Init() error { return nil }
func (s *Store) Load() error { return nil }

func (s *Store) Close() error {
	s.hub.Close()
	return nil
}

func (s *Store) GetConfigPath() string { return "memory" }

func (s *Store) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return models.Settings{}, errors.ErrStoreUnavailable
	}
	return models.MapToSettings(s.settings)
}

func (s *Store) SaveSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return errors.ErrStoreUnavailable
	}
	s.settings = models.SettingsToMap(settings)
	return nil
}

func (s *Store) Read(ctx context.Context, field string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return "", false, errors.ErrStoreUnavailable
	}
	v, ok := s.fields[field]
	return v, ok, nil
}

func (s *Store) Write(ctx context.Context, field, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, errors.ErrStoreUnavailable)
	}
	if s.writeErr != nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, s.writeErr)
	}

	if value == "" {
		delete(s.fields, field)
	} else {
		s.fields[field] = value
	}
	// Publishing under mu keeps delivery order equal to write order.
	s.hub.Publish(field, value, value != "")
	return nil
}

func (s *Store) Subscribe(field string, l storage.Listener) (storage.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.fields[field]
	return s.hub.Subscribe(field, l, v, ok)
}

// SetAvailable simulates losing or regaining the store. Going down cancels
// live delivery; coming back redelivers the current value of every
// subscribed field.
func (s *Store) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.available == available {
		return
	}
	s.available = available

	if !available {
		logger.Warn("Memory store marked unavailable")
		s.hub.Cancel(errors.ErrStoreUnavailable)
		return
	}

	logger.Info("Memory store available again")
	for _, field := range s.hub.Fields() {
		v, ok := s.fields[field]
		s.hub.Publish(field, v, ok)
	}
}

// FailWrites makes every Write fail with err until called with nil.
// Reads and subscriptions keep working.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.Len()
}
