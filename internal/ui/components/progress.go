package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/ui/theme"
)

// ProgressBar displays how many of a fixed number of items are done.
type ProgressBar struct {
	Label string
	Done  int
	Total int
	Width int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, done, total, width int) ProgressBar {
	return ProgressBar{
		Label: label,
		Done:  done,
		Total: total,
		Width: width,
	}
}

// Fraction returns Done/Total clamped to [0, 1].
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Done) / float64(p.Total)
	return min(max(f, 0), 1)
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	count := fmt.Sprintf("  %d/%d", p.Done, p.Total)
	barWidth := max(p.Width-lipgloss.Width(result)-len(count), 4)

	filled := int(float64(barWidth) * p.Fraction())
	empty := barWidth - filled

	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", empty))

	result += lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(count)

	return result
}
