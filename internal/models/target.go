package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/errors"
)

// TargetTime is the instant a countdown runs to. It is stored in the shared
// field as a minute-precision local timestamp without an offset.
type TargetTime struct {
	t time.Time
}

// NewTargetTime truncates t to the minute so it survives a trip through the
// wire format unchanged.
func NewTargetTime(t time.Time) TargetTime {
	return TargetTime{t: t.Truncate(time.Minute)}
}

// ParseTargetTime parses a stored value in the given location.
// Malformed values return an error wrapping errors.ErrParse.
func ParseTargetTime(raw string, loc *time.Location) (TargetTime, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(constants.TargetFormat, strings.TrimSpace(raw), loc)
	if err != nil {
		return TargetTime{}, fmt.Errorf("%w: %q: %v", errors.ErrParse, raw, err)
	}
	return TargetTime{t: t}, nil
}

// CombineDateAndTime builds a target from separate date (YYYY-MM-DD) and
// time (HH:MM) inputs, the way the date and time pickers hand them over.
func CombineDateAndTime(dateStr, timeStr string, loc *time.Location) (TargetTime, error) {
	return ParseTargetTime(strings.TrimSpace(dateStr)+" "+strings.TrimSpace(timeStr), loc)
}

// Time returns the instant.
func (t TargetTime) Time() time.Time { return t.t }

// IsZero reports whether t was never set.
func (t TargetTime) IsZero() bool { return t.t.IsZero() }

// Equal reports whether both targets name the same instant.
func (t TargetTime) Equal(o TargetTime) bool { return t.t.Equal(o.t) }

// String renders the wire format.
func (t TargetTime) String() string {
	return t.t.Format(constants.TargetFormat)
}
