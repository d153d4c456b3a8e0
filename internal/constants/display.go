package constants

// Fixed display strings shown instead of a remaining duration.
const (
	TextNoTimer         = "no timer set"
	TextInvalidDate     = "invalid date"
	TextComplete        = "countdown complete"
	TextConnecting      = "connecting..."
	TextSaveFailed      = "failed to save target"
	TextLiveUpdatesLost = "live updates interrupted"

	// TextRemainingFmt renders days, hours, minutes and seconds.
	TextRemainingFmt = "%dd %dh %dm %ds"
)
