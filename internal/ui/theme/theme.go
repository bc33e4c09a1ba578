package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, muted for long sittings
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#0EA5E9") // Sky
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#EF4444") // Red
	Manual    = lipgloss.Color("#A855F7") // Purple
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Warning = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Dialog = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Accent).
		Padding(1, 3)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	NeedsGrading = lipgloss.NewStyle().
			Foreground(Manual).
			Bold(true)
)

// Palette cells
var (
	CellCurrent = lipgloss.NewStyle().
			Background(Primary).
			Foreground(Text).
			Bold(true)

	CellAnswered = lipgloss.NewStyle().
			Background(Secondary).
			Foreground(BgDark)

	CellUnanswered = lipgloss.NewStyle().
			Background(Border).
			Foreground(TextDim)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)
