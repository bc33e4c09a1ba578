package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/router"
	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/ui/layout"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// NewAppModel creates an AppModel showing root.
func NewAppModel(root screen.Screen) AppModel {
	return AppModel{
		router: router.New(root),
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if c, ok := m.router.Active().(screen.InputCapturer); ok && c.CapturingInput() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}

	header := layout.RenderHeader(title, status, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	}
	if m.router.Depth() > 1 {
		footerHints = append(footerHints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	footerHints = append(footerHints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program with root as the first screen.
func Run(root screen.Screen) error {
	p := tea.NewProgram(NewAppModel(root))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
