package sqlite

import (
	"context"
	"time"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/logger"
)

const storeQueryTimeout = constants.DefaultStoreQueryTimeout

// startWatcher launches the revision poller once. Other processes sharing
// the database file only become visible through it.
func (s *Store) startWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.done = make(chan struct{})
	go s.watch(ctx, s.done)
}

func (s *Store) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	logger.Debug("Watcher started", "store", "sqlite", "interval", s.pollInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		s.poll(ctx)
	}
}

// poll publishes fields whose revision moved. A failed poll cancels live
// delivery; the first good poll after that republishes every field.
func (s *Store) poll(ctx context.Context) {
	fields := s.hub.Fields()
	if len(fields) == 0 {
		return
	}

	type row struct {
		field    string
		value    string
		revision int64
	}
	rows := make([]row, 0, len(fields))
	for _, field := range fields {
		qctx, cancel := context.WithTimeout(ctx, storeQueryTimeout)
		value, revision, err := s.readRevision(qctx, field)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.markUnhealthy(err)
			return
		}
		rows = append(rows, row{field, value, revision})
	}

	// Revisions only move forward. Subscribe may have published a newer row
	// while these were being read.
	s.mu.Lock()
	defer s.mu.Unlock()
	recovered := !s.healthy
	s.healthy = true
	if recovered {
		logger.Info("Store reachable again, redelivering", "store", "sqlite", "fields", len(rows))
	}
	for _, r := range rows {
		known := s.revisions[r.field]
		if r.revision < known || (r.revision == known && !recovered) {
			continue
		}
		s.revisions[r.field] = r.revision
		s.hub.Publish(r.field, r.value, r.value != "")
	}
}

func (s *Store) markUnhealthy(err error) {
	s.mu.Lock()
	wasHealthy := s.healthy
	s.healthy = false
	s.mu.Unlock()

	if wasHealthy {
		logger.Warn("Store poll failed, live updates interrupted", "store", "sqlite", "error", err)
		s.hub.Cancel(err)
	}
}
