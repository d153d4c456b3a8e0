package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/tminus/internal/config"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/fanout"
	"github.com/julianstephens/tminus/internal/keyring"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/session"
	"github.com/julianstephens/tminus/internal/storage"
	"github.com/julianstephens/tminus/internal/storage/jsonfile"
	"github.com/julianstephens/tminus/internal/storage/postgres"
	"github.com/julianstephens/tminus/internal/storage/sqlite"
	"github.com/julianstephens/tminus/internal/utils"
)

type Context struct {
	Store  storage.Provider
	Config config.Config
}

// OpenStore picks a backend from the --config value: a PostgreSQL
// connection string, a .json document or, by default, a SQLite file.
func OpenStore(target string, cfg config.Config) (storage.Provider, error) {
	if postgres.IsConnString(target) || strings.Contains(target, "host=") {
		if valid, err := postgres.ValidateConnString(target); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL connection strings with embedded credentials are not allowed; use 'tminus keyring set', %s or .pgpass instead: %w",
					constants.ConnectionEnvVar, err)
			}
			return nil, err
		}
		connStr, source := keyring.ResolveConnectionString(target)
		logger.Debug("Using PostgreSQL store", "source", source)
		return postgres.New(connStr), nil
	}

	path, err := utils.ExpandHome(target)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return jsonfile.NewStore(path), nil
	}
	return sqlite.NewStore(path, sqlite.WithPollInterval(cfg.PollInterval)), nil
}

// ConfigDir returns the directory holding config.yaml and logs for target.
// Database URLs fall back to the default config directory.
func ConfigDir(target, fallback string) string {
	if postgres.IsConnString(target) || strings.Contains(target, "host=") {
		target = fallback
	}
	path, err := utils.ExpandHome(target)
	if err != nil {
		return "."
	}
	return filepath.Dir(path)
}

// Location returns the zone stored targets are read in.
func (c *Context) Location() (*time.Location, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return utils.LoadLocation(settings.Timezone)
}

// NewSession builds a countdown session over the context's store with the
// notification sinks enabled by settings and config.yaml. The returned
// Multi must be closed after the session.
func (c *Context) NewSession(display session.Display, opts ...session.Option) (*session.Session, *fanout.Multi, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		logger.Warn("Using default settings", "error", err)
		settings = models.DefaultSettings()
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, nil, err
	}

	notifier := fanout.FromConfig(c.Config, settings, c.Store)
	logger.Debug("Notification sinks", "sinks", notifier.Names())

	opts = append([]session.Option{session.WithLocation(loc), session.WithNotifier(notifier)}, opts...)
	return session.New(c.Store, display, opts...), notifier, nil
}
