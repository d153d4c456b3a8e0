// Package jsonfile keeps the shared fields and settings in a single JSON
// document. Writes replace the file atomically and an fsnotify watcher picks
// up changes made by other processes.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage"
)

const documentVersion = 1

type document struct {
	Version  int               `json:"version"`
	Settings map[string]string `json:"settings"`
	Fields   map[string]string `json:"fields"`
}

type Store struct {
	path string
	hub  *storage.Hub

	// mu serializes file access within this process
	mu      sync.Mutex
	healthy bool

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path:    filepath.Clean(path),
		hub:     storage.NewHub(),
		healthy: true,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err != nil {
		doc = &document{Fields: make(map[string]string)}
	}
	doc.Version = documentVersion
	if len(doc.Settings) == 0 {
		doc.Settings = models.SettingsToMap(models.DefaultSettings())
	}
	return s.saveDoc(doc)
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'tminus init' first")
		}
		return err
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade the application", doc.Version, documentVersion)
	}
	return nil
}

func (s *Store) Close() error {
	s.watchMu.Lock()
	w, done := s.watcher, s.done
	s.watcher = nil
	s.watchMu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
		<-done
	}
	s.hub.Close()
	return err
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return models.Settings{}, err
	}
	return models.MapToSettings(doc.Settings)
}

func (s *Store) SaveSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	doc.Settings = models.SettingsToMap(settings)
	return s.saveDoc(doc)
}

func (s *Store) Read(ctx context.Context, field string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	v := doc.Fields[field]
	return v, v != "", nil
}

func (s *Store) Write(ctx context.Context, field, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, err)
	}
	if value == "" {
		delete(doc.Fields, field)
	} else {
		doc.Fields[field] = value
	}
	if err := s.saveDoc(doc); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStoreWrite, err)
	}

	s.hub.Publish(field, value, value != "")
	return nil
}

func (s *Store) Subscribe(field string, l storage.Listener) (storage.Subscription, error) {
	if err := s.startWatcher(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	v := doc.Fields[field]
	// The file may have changed before the watcher noticed; existing
	// subscribers see the newer value first and the replay matches it.
	if cur, _, seen := s.hub.Latest(field); seen && cur != v {
		s.hub.Publish(field, v, v != "")
	}
	return s.hub.Subscribe(field, l, v, v != "")
}

func (s *Store) readDoc() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]string)
	}
	if doc.Settings == nil {
		doc.Settings = make(map[string]string)
	}
	return doc, nil
}

// saveDoc writes to a temp file in the same directory and renames it over
// the document, so readers never observe a partial write.
func (s *Store) saveDoc(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tminus-*.json")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	logger.Debug("Storage written", "store", "json", "path", s.path)
	return nil
}
