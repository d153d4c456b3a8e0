package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/tminus/internal/constants"
)

// MapToSettings converts settings rows to a Settings struct. Unknown keys
// are ignored so older binaries can read rows written by newer ones.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := DefaultSettings()

	for key, value := range data {
		switch key {
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingNotificationsEnabled:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.NotificationsEnabled = b
		case constants.SettingNotifyFieldEnabled:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.NotifyFieldEnabled = b
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to settings rows.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingTimezone:             settings.Timezone,
		constants.SettingNotificationsEnabled: strconv.FormatBool(settings.NotificationsEnabled),
		constants.SettingNotifyFieldEnabled:   strconv.FormatBool(settings.NotifyFieldEnabled),
	}
}
