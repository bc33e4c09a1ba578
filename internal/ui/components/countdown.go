package components

import (
	"fmt"

	"github.com/abhisek/mocktest/internal/ui/theme"
)

// FormatClock renders seconds as m:ss, or h:mm:ss from one hour up.
// Negative values render as zero.
func FormatClock(seconds int) string {
	seconds = max(seconds, 0)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Countdown renders the remaining time, amber under five minutes and red
// under one.
func Countdown(seconds int) string {
	clock := "⏱ " + FormatClock(seconds)
	switch {
	case seconds < 60:
		return theme.ErrorText.Render(clock)
	case seconds < 300:
		return theme.Warning.Render(clock)
	default:
		return theme.Body.Render(clock)
	}
}
