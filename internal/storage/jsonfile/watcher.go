package jsonfile

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
)

// startWatcher watches the parent directory; atomic renames replace the
// document's inode, which a watch on the file itself would lose.
func (s *Store) startWatcher() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: creating watcher: %w", errors.ErrStoreUnavailable, err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("%w: watching %s: %w", errors.ErrStoreUnavailable, filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watch(w, s.done)
	return nil
}

func (s *Store) watch(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				s.reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.mu.Lock()
			s.markUnhealthy(err)
			s.mu.Unlock()
		}
	}
}

// reload publishes fields that differ from what subscribers last saw. After
// a failure every subscribed field is republished.
func (s *Store) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		s.markUnhealthy(err)
		return
	}

	recovered := !s.healthy
	s.healthy = true
	if recovered {
		logger.Info("Storage readable again, redelivering", "store", "json", "path", s.path)
	}

	for _, field := range s.hub.Fields() {
		v := doc.Fields[field]
		cur, _, seen := s.hub.Latest(field)
		if recovered || !seen || cur != v {
			s.hub.Publish(field, v, v != "")
		}
	}
}

// markUnhealthy must be called with mu held.
func (s *Store) markUnhealthy(err error) {
	if !s.healthy {
		return
	}
	s.healthy = false
	logger.Warn("Storage unreadable, live updates interrupted", "store", "json", "path", s.path, "error", err)
	s.hub.Cancel(fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err))
}
