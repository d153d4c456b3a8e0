package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/tminus/internal/constants"
)

// RemainingDuration is the derived time left until a target.
type RemainingDuration struct {
	Days      int64
	Hours     int
	Minutes   int
	Seconds   int
	Completed bool
}

// ComputeRemaining decomposes floor(target - now) in whole seconds.
// Once the difference is zero or negative the result is Completed with
// every unit zeroed.
func ComputeRemaining(target, now time.Time) RemainingDuration {
	// Unix seconds avoid time.Duration saturating for targets centuries out.
	delta := target.Unix() - now.Unix()
	if target.Nanosecond() < now.Nanosecond() {
		delta--
	}
	if delta <= 0 {
		return RemainingDuration{Completed: true}
	}

	return RemainingDuration{
		Days:    delta / 86400,
		Hours:   int((delta / 3600) % 24),
		Minutes: int((delta / 60) % 60),
		Seconds: int(delta % 60),
	}
}

// TotalSeconds recomposes the decomposed units.
func (r RemainingDuration) TotalSeconds() int64 {
	return r.Days*86400 + int64(r.Hours)*3600 + int64(r.Minutes)*60 + int64(r.Seconds)
}

func (r RemainingDuration) String() string {
	if r.Completed {
		return constants.TextComplete
	}
	return fmt.Sprintf(constants.TextRemainingFmt, r.Days, r.Hours, r.Minutes, r.Seconds)
}
