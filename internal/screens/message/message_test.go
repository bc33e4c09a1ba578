package message

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/mocktest/internal/ui/components"
)

func TestViewShowsHeadingAndBody(t *testing.T) {
	s := New(Options{
		Title:   "Arithmetic",
		Heading: "No attempts left",
		Body:    []string{"You have used 1 of 1 attempts."},
		Tone:    ToneWarning,
		Actions: []components.MenuItem{Quit()},
	})
	view := s.View(80, 24)
	for _, want := range []string{"No attempts left", "1 of 1", "Quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if s.Title() != "Arithmetic" {
		t.Errorf("Title = %q", s.Title())
	}
}

func TestHotkeyRunsAction(t *testing.T) {
	ran := false
	s := New(Options{Actions: []components.MenuItem{
		{Label: "Retry", Hotkey: "r", Action: func() tea.Cmd { ran = true; return nil }},
		Quit(),
	}})

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if !ran {
		t.Fatal("retry action not run")
	}
	if cmd != nil {
		t.Error("retry returned unexpected command")
	}

	_, cmd = s.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("quit produced %T", cmd())
	}
}

func TestKeyHintsListHotkeys(t *testing.T) {
	s := New(Options{Actions: []components.MenuItem{
		{Label: "Review", Hotkey: "v"},
		{Label: "Hidden", Hotkey: "x", Disabled: true},
	}})
	var keys []string
	for _, h := range s.KeyHints() {
		keys = append(keys, h.Key)
	}
	joined := strings.Join(keys, ",")
	if !strings.Contains(joined, "v") || strings.Contains(joined, "x") {
		t.Errorf("hints = %s", joined)
	}
}
