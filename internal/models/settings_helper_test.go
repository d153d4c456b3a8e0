package models

import (
	"testing"

	"github.com/julianstephens/tminus/internal/constants"
)

func TestSettingsMapRoundTrip(t *testing.T) {
	in := Settings{Timezone: "Europe/Berlin", NotificationsEnabled: false, NotifyFieldEnabled: true}

	out, err := MapToSettings(SettingsToMap(in))
	if err != nil {
		t.Fatalf("MapToSettings() error = %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestMapToSettingsDefaultsMissingKeys(t *testing.T) {
	out, err := MapToSettings(map[string]string{"unknown_key": "x"})
	if err != nil {
		t.Fatalf("MapToSettings() error = %v", err)
	}
	if out != DefaultSettings() {
		t.Errorf("MapToSettings() = %+v, want defaults", out)
	}
}

func TestMapToSettingsRejectsBadBool(t *testing.T) {
	_, err := MapToSettings(map[string]string{constants.SettingNotificationsEnabled: "maybe"})
	if err == nil {
		t.Error("expected error for non-boolean value")
	}
}
