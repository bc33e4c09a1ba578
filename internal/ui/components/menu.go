package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/ui/theme"
)

// MenuItem represents a single item in an action menu.
type MenuItem struct {
	Label    string
	Hotkey   string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a vertical action menu.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu creates a new menu with the given items.
func NewMenu(items []MenuItem) Menu {
	selected := 0
	for i, item := range items {
		if !item.Disabled {
			selected = i
			break
		}
	}
	return Menu{
		Items:    items,
		Selected: selected,
	}
}

// Update handles keyboard navigation, enter and item hotkeys.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		for i := m.Selected - 1; i >= 0; i-- {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "down", "j":
		for i := m.Selected + 1; i < len(m.Items); i++ {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "enter":
		return m, m.run(m.Selected)
	default:
		for i, item := range m.Items {
			if item.Hotkey != "" && item.Hotkey == key {
				m.Selected = i
				return m, m.run(i)
			}
		}
	}

	return m, nil
}

func (m Menu) run(i int) tea.Cmd {
	if i < 0 || i >= len(m.Items) {
		return nil
	}
	item := m.Items[i]
	if item.Action == nil || item.Disabled {
		return nil
	}
	return item.Action()
}

// View renders the menu.
func (m Menu) View() string {
	var b strings.Builder
	for i, item := range m.Items {
		label := item.Label
		if item.Hotkey != "" {
			label = "[" + item.Hotkey + "] " + label
		}
		switch {
		case item.Disabled:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render("    " + label))
		case i == m.Selected:
			b.WriteString(theme.Selected.Render("  ▸ " + label))
		default:
			b.WriteString(theme.Unselected.Render("    " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}
