package fanout

import (
	"github.com/julianstephens/tminus/internal/config"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage"
)

// FromConfig assembles the sinks enabled by cfg and the stored settings.
// notifications_enabled gates the outward sinks; notify_field_enabled gates
// the mirror field on its own.
func FromConfig(cfg config.Config, settings models.Settings, store storage.TargetStore) *Multi {
	var sinks []Sink

	if settings.NotificationsEnabled {
		if cfg.Tray.Enabled {
			sinks = append(sinks, NewTray())
		}
		for _, wh := range cfg.Webhooks {
			sinks = append(sinks, NewWebhook(wh.URL, wh.Timeout))
		}
		if len(cfg.Kafka.Brokers) > 0 {
			sinks = append(sinks, NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		}
	}
	if settings.NotifyFieldEnabled && store != nil {
		sinks = append(sinks, NewField(store))
	}

	return NewMulti(sinks...)
}
