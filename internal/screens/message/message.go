// Package message is a terminal screen that explains why a test can't be
// taken (or has ended) and offers follow-up actions.
package message

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/ui/components"
	"github.com/abhisek/mocktest/internal/ui/layout"
	"github.com/abhisek/mocktest/internal/ui/theme"
)

// Tone selects the heading colour.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
	ToneError
)

func (t Tone) style() lipgloss.Style {
	switch t {
	case ToneSuccess:
		return theme.Correct
	case ToneWarning:
		return theme.Warning
	case ToneError:
		return theme.ErrorText
	default:
		return theme.Title
	}
}

// Options configures a message screen.
type Options struct {
	Title   string
	Heading string
	Body    []string
	Tone    Tone
	Actions []components.MenuItem
}

// MessageScreen shows a heading, a few lines of detail and an action menu.
type MessageScreen struct {
	opts Options
	menu components.Menu
}

var _ screen.Screen = (*MessageScreen)(nil)
var _ screen.KeyHintProvider = (*MessageScreen)(nil)

// New creates a message screen.
func New(opts Options) *MessageScreen {
	return &MessageScreen{opts: opts, menu: components.NewMenu(opts.Actions)}
}

// Quit is a ready-made action that exits the program.
func Quit() components.MenuItem {
	return components.MenuItem{Label: "Quit", Hotkey: "q", Action: func() tea.Cmd { return tea.Quit }}
}

func (s *MessageScreen) Init() tea.Cmd { return nil }

func (s *MessageScreen) Title() string { return s.opts.Title }

func (s *MessageScreen) Heading() string { return s.opts.Heading }

func (s *MessageScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "↑↓", Description: "Choose"}, {Key: "Enter", Description: "Select"}}
	for _, a := range s.opts.Actions {
		if a.Hotkey != "" && !a.Disabled {
			hints = append(hints, layout.KeyHint{Key: a.Hotkey, Description: a.Label})
		}
	}
	return hints
}

func (s *MessageScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *MessageScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, s.opts.Tone.style(), s.opts.Heading))
	b.WriteString("\n\n")
	for _, line := range s.opts.Body {
		b.WriteString(layout.Centered(width, theme.Body, line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	menu := theme.Card.Render(strings.TrimRight(s.menu.View(), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))
	return b.String()
}
