package fanout

import (
	"context"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/storage"
)

// Field mirrors each new target into the secondary notify_update field,
// which other clients can subscribe to as a change signal.
type Field struct {
	store storage.TargetStore
	field string
}

func NewField(store storage.TargetStore) *Field {
	return &Field{store: store, field: constants.FieldNotifyUpdate}
}

func (f *Field) Name() string { return "field" }

func (f *Field) Notify(ctx context.Context, value string) error {
	return f.store.Write(ctx, f.field, value)
}
