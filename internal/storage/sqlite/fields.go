package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/storage"
)

func (s *Store) Read(ctx context.Context, field string) (string, bool, error) {
	value, _, err := s.readRevision(ctx, field)
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}

// readRevision returns the field value and its revision; an absent row reads
// as revision 0.
func (s *Store) readRevision(ctx context.Context, field string) (string, int64, error) {
	db := s.conn()
	if db == nil {
		return "", 0, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, errors.ErrNotLoaded)
	}

	var value string
	var revision int64
	err := db.QueryRowContext(ctx, "SELECT value, revision FROM fields WHERE key = ?", field).Scan(&value, &revision)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading %s: %w", errors.ErrStoreUnavailable, field, err)
	}
	return value, revision, nil
}

func (s *Store) Write(ctx context.Context, field, value string) error {
	db := s.conn()
	if db == nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, errors.ErrNotLoaded)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO fields (key, value, revision, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = fields.revision + 1,
			updated_at = excluded.updated_at
	`, field, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrStoreWrite, field, err)
	}

	logger.Debug("Field written", "store", "sqlite", "field", field)

	select {
	case s.kick <- struct{}{}:
	default:
	}
	return nil
}

func (s *Store) Subscribe(field string, l storage.Listener) (storage.Subscription, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeQueryTimeout)
	defer cancel()

	value, revision, err := s.readRevision(ctx, field)
	if err != nil {
		return nil, err
	}

	// A newer revision than the watcher has seen reaches existing
	// subscribers before the new one is registered, so the hub's replay
	// never hands out a stale value.
	s.mu.Lock()
	known, seen := s.revisions[field]
	switch {
	case !seen:
		s.revisions[field] = revision
	case revision > known:
		s.revisions[field] = revision
		s.hub.Publish(field, value, value != "")
	}
	sub, err := s.hub.Subscribe(field, l, value, value != "")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.startWatcher()
	return sub, nil
}
