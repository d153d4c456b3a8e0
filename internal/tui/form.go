package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tminus/internal/constants"
)

// TargetFormModel holds the date and time picked in the set form.
type TargetFormModel struct {
	Date string
	Time string
}

func newTargetFormModel(now time.Time) *TargetFormModel {
	next := now.Add(time.Hour).Truncate(time.Minute)
	return &TargetFormModel{
		Date: next.Format(constants.DateFormat),
		Time: next.Format(constants.TimeFormat),
	}
}

// NewTargetForm creates the form used to pick a new target
func NewTargetForm(fm *TargetFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&fm.Date).
				Validate(func(s string) error {
					if _, err := time.Parse(constants.DateFormat, s); err != nil {
						return fmt.Errorf("invalid date format, use YYYY-MM-DD")
					}
					return nil
				}),
			huh.NewInput().
				Title("Time (HH:MM)").
				Value(&fm.Time).
				Validate(func(s string) error {
					if _, err := time.Parse(constants.TimeFormat, s); err != nil {
						return fmt.Errorf("invalid time format, use HH:MM")
					}
					return nil
				}),
		),
	)
}
