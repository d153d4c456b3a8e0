package models

import (
	"math/rand"
	"testing"
	"time"

	"github.com/julianstephens/tminus/internal/errors"
)

func TestParseTargetTime(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		loc     *time.Location
		want    time.Time
		wantErr bool
	}{
		{name: "utc", raw: "2999-01-01 00:00", loc: time.UTC, want: time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "location applied", raw: "2025-07-04 18:30", loc: tokyo, want: time.Date(2025, 7, 4, 18, 30, 0, 0, tokyo)},
		{name: "surrounding whitespace", raw: " 2025-07-04 18:30\n", loc: time.UTC, want: time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC)},
		{name: "not a date", raw: "not-a-date", loc: time.UTC, wantErr: true},
		{name: "empty", raw: "", loc: time.UTC, wantErr: true},
		{name: "seconds present", raw: "2025-07-04 18:30:00", loc: time.UTC, wantErr: true},
		{name: "12 hour clock", raw: "2025-07-04 6:30 PM", loc: time.UTC, wantErr: true},
		{name: "bad month", raw: "2025-13-04 18:30", loc: time.UTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargetTime(tt.raw, tt.loc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTargetTime(%q) expected error", tt.raw)
				}
				if !errors.Is(err, errors.ErrParse) {
					t.Errorf("error %v does not wrap ErrParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTargetTime(%q) error = %v", tt.raw, err)
			}
			if !got.Time().Equal(tt.want) {
				t.Errorf("ParseTargetTime(%q) = %v, want %v", tt.raw, got.Time(), tt.want)
			}
		})
	}
}

func TestTargetTimeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		instant := base.Add(time.Duration(rng.Int63n(int64(200 * 365 * 24 * time.Hour))))
		target := NewTargetTime(instant)

		parsed, err := ParseTargetTime(target.String(), time.UTC)
		if err != nil {
			t.Fatalf("case %d: re-parse %q: %v", i, target.String(), err)
		}
		if !parsed.Equal(target) {
			t.Fatalf("case %d: round trip %v -> %q -> %v", i, target.Time(), target.String(), parsed.Time())
		}
		if parsed.Time().Second() != 0 || parsed.Time().Nanosecond() != 0 {
			t.Fatalf("case %d: seconds survived round trip: %v", i, parsed.Time())
		}
		if !parsed.Time().Equal(instant.Truncate(time.Minute)) {
			t.Fatalf("case %d: %v not equal to original to the minute", i, parsed.Time())
		}
	}
}

func TestCombineDateAndTime(t *testing.T) {
	got, err := CombineDateAndTime("2026-12-31", "23:59", time.UTC)
	if err != nil {
		t.Fatalf("CombineDateAndTime() error = %v", err)
	}
	if got.String() != "2026-12-31 23:59" {
		t.Errorf("String() = %q", got.String())
	}

	if _, err := CombineDateAndTime("2026-12-31", "25:00", time.UTC); !errors.Is(err, errors.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestSessionStateString(t *testing.T) {
	states := map[SessionState]string{
		StateIdle:        "idle",
		StateRunning:     "running",
		StateCompleted:   "completed",
		StateInvalid:     "invalid",
		SessionState(42): "unknown",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
