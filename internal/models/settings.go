package models

import "github.com/julianstephens/tminus/internal/constants"

// Settings represents application-wide settings stored next to the shared field
type Settings struct {
	Timezone             string `json:"timezone"`              // IANA timezone name or "Local"; every client sharing a store should agree
	NotificationsEnabled bool   `json:"notifications_enabled"` // whether target changes are fanned out
	NotifyFieldEnabled   bool   `json:"notify_field_enabled"`  // whether writes are mirrored to the notify_update field
}

// DefaultSettings returns the settings written by init.
func DefaultSettings() Settings {
	return Settings{
		Timezone:             constants.DefaultTimezone,
		NotificationsEnabled: constants.DefaultNotificationsEnabled,
		NotifyFieldEnabled:   constants.DefaultNotifyFieldEnabled,
	}
}
