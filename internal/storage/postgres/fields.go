package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/storage"
)

func (s *Store) Read(ctx context.Context, field string) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, errors.ErrNotLoaded)
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM fields WHERE key = $1", field).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: reading %s: %w", errors.ErrStoreUnavailable, field, err)
	}
	return value, value != "", nil
}

// Write upserts the field. The fields_notify trigger announces the change on
// the tminus_fields channel within the same transaction.
func (s *Store) Write(ctx context.Context, field, value string) error {
	if s.db == nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, errors.ErrNotLoaded)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fields (key, value, revision, updated_at) VALUES ($1, $2, 1, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			revision = fields.revision + 1,
			updated_at = now()
	`, field, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrStoreWrite, field, err)
	}

	logger.Debug("Field written", "store", "postgres", "field", field)
	return nil
}

func (s *Store) Subscribe(field string, l storage.Listener) (storage.Subscription, error) {
	if err := s.startListener(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()

	value, ok, err := s.Read(ctx, field)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(field, l, value, ok)
}
