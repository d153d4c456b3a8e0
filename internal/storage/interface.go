package storage

import (
	"context"

	"github.com/julianstephens/tminus/internal/models"
)

// Listener receives the values of a subscribed field.
//
// OnChange is called with ok == false when the field is absent or empty.
// OnCancelled reports that live delivery stopped; the subscription stays
// registered and resumes with the latest value once the store recovers.
type Listener interface {
	OnChange(value string, ok bool)
	OnCancelled(err error)
}

// ListenerFuncs adapts plain functions to a Listener. Nil funcs are skipped.
type ListenerFuncs struct {
	Change    func(value string, ok bool)
	Cancelled func(err error)
}

func (f ListenerFuncs) OnChange(value string, ok bool) {
	if f.Change != nil {
		f.Change(value, ok)
	}
}

func (f ListenerFuncs) OnCancelled(err error) {
	if f.Cancelled != nil {
		f.Cancelled(err)
	}
}

// Subscription is a handle on an active Subscribe call.
// Unsubscribe is idempotent and must not be called from inside one of the
// subscription's own callbacks.
type Subscription interface {
	ID() string
	Unsubscribe()
}

// TargetStore is a subscribable key/value store holding single string fields.
type TargetStore interface {
	// Read returns the field value; ok is false when the field is absent.
	Read(ctx context.Context, field string) (value string, ok bool, err error)
	// Write stores value, last writer wins. An empty value clears the field.
	Write(ctx context.Context, field, value string) error
	// Subscribe replays the current value, then delivers every change,
	// including changes made through this store.
	Subscribe(field string, l Listener) (Subscription, error)
}

// Provider is a TargetStore with a lifecycle and settings, backed by
// SQLite, PostgreSQL, a JSON file or memory.
type Provider interface {
	TargetStore

	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Utils
	GetConfigPath() string
}
