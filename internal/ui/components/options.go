package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/ui/theme"
)

// OptionList is a cursor-driven selector for a choice question. In single
// mode picking an option replaces the selection; in multi mode it toggles.
type OptionList struct {
	Options []exam.Option
	Multi   bool
	Cursor  int
	chosen  map[string]bool
}

// NewOptionList creates a selector for q preloaded with the given answer.
func NewOptionList(q exam.Question, a exam.Answer) OptionList {
	chosen := make(map[string]bool)
	for _, id := range a.Options() {
		chosen[id] = true
	}
	return OptionList{
		Options: q.Options,
		Multi:   q.Type == exam.TypeMultiChoice,
		chosen:  chosen,
	}
}

// Update handles cursor movement and selection keys. The second return
// value reports whether the selection changed.
func (o OptionList) Update(msg tea.Msg) (OptionList, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return o, false
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if o.Cursor > 0 {
			o.Cursor--
		}
	case "down", "j":
		if o.Cursor < len(o.Options)-1 {
			o.Cursor++
		}
	case "space", " ", "enter":
		return o.Pick(o.Cursor)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			return o.Pick(int(key[0] - '1'))
		}
	}
	return o, false
}

// Pick selects (or toggles, in multi mode) the option at index i and moves
// the cursor there. Out-of-range indexes are ignored.
func (o OptionList) Pick(i int) (OptionList, bool) {
	if i < 0 || i >= len(o.Options) {
		return o, false
	}
	o.Cursor = i
	id := o.Options[i].ID

	next := make(map[string]bool, len(o.chosen)+1)
	if o.Multi {
		for k, v := range o.chosen {
			next[k] = v
		}
		if next[id] {
			delete(next, id)
		} else {
			next[id] = true
		}
	} else {
		if o.chosen[id] && len(o.chosen) == 1 {
			return o, false
		}
		next[id] = true
	}
	o.chosen = next
	return o, true
}

// Chosen reports whether option id is selected.
func (o OptionList) Chosen(id string) bool {
	return o.chosen[id]
}

// Answer returns the current selection as an answer value.
func (o OptionList) Answer() exam.Answer {
	ids := make([]string, 0, len(o.chosen))
	for _, opt := range o.Options {
		if o.chosen[opt.ID] {
			ids = append(ids, opt.ID)
		}
	}
	if o.Multi {
		return exam.MultiChoice(ids...)
	}
	if len(ids) == 0 {
		return exam.Answer{}
	}
	return exam.Choice(ids[0])
}

// View renders the option list.
func (o OptionList) View() string {
	var b strings.Builder
	for i, opt := range o.Options {
		prefix := "  "
		if i == o.Cursor {
			prefix = "▸ "
		}

		mark := "( )"
		if o.Multi {
			mark = "[ ]"
		}
		if o.chosen[opt.ID] {
			mark = "(•)"
			if o.Multi {
				mark = "[x]"
			}
		}

		line := fmt.Sprintf("%s%d %s %s) %s", prefix, i+1, mark, opt.ID, opt.Text)
		if opt.Image != "" {
			line += "  " + theme.Hint.Render("["+opt.Image+"]")
		}

		switch {
		case i == o.Cursor:
			b.WriteString(theme.Selected.Render(line))
		case o.chosen[opt.ID]:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
