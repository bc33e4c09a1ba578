package components

import (
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/ui/theme"
)

const (
	shortAnswerLimit = 200
	longAnswerLimit  = 5000
)

// AnswerInput edits a free-text answer: a single line for short answers and
// a multi-line area for long ones. It starts blurred; keys only reach the
// underlying model while it is focused.
type AnswerInput struct {
	Long  bool
	line  textinput.Model
	area  textarea.Model
	focus bool
}

// NewAnswerInput creates an input preloaded with value.
func NewAnswerInput(long bool, value string) AnswerInput {
	in := AnswerInput{Long: long}
	if long {
		ta := textarea.New()
		ta.Placeholder = "Write your answer..."
		ta.CharLimit = longAnswerLimit
		ta.ShowLineNumbers = false
		ta.SetHeight(6)
		ta.SetValue(value)
		ta.Blur()
		in.area = ta
	} else {
		ti := textinput.New()
		ti.Placeholder = "Type your answer..."
		ti.CharLimit = shortAnswerLimit
		ti.SetValue(value)
		ti.Blur()
		in.line = ti
	}
	return in
}

// Focus starts editing.
func (a *AnswerInput) Focus() tea.Cmd {
	a.focus = true
	if a.Long {
		return a.area.Focus()
	}
	return a.line.Focus()
}

// Blur stops editing.
func (a *AnswerInput) Blur() {
	a.focus = false
	if a.Long {
		a.area.Blur()
		return
	}
	a.line.Blur()
}

// Focused reports whether the input is being edited.
func (a AnswerInput) Focused() bool {
	return a.focus
}

// SetWidth sets the rendered width.
func (a *AnswerInput) SetWidth(w int) {
	if a.Long {
		a.area.SetWidth(w)
	}
}

// Update forwards the message to the active model while focused.
func (a AnswerInput) Update(msg tea.Msg) (AnswerInput, tea.Cmd) {
	if !a.focus {
		return a, nil
	}
	var cmd tea.Cmd
	if a.Long {
		a.area, cmd = a.area.Update(msg)
	} else {
		a.line, cmd = a.line.Update(msg)
	}
	return a, cmd
}

// Value returns the current text.
func (a AnswerInput) Value() string {
	if a.Long {
		return a.area.Value()
	}
	return a.line.Value()
}

// View renders the input inside a card whose border shows the edit state.
func (a AnswerInput) View() string {
	view := a.line.View()
	if a.Long {
		view = a.area.View()
	}
	border := theme.Border
	if a.focus {
		border = theme.Primary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(view)
}
