package take

import (
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/mocktest/internal/router"
	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/screens/message"
	"github.com/abhisek/mocktest/internal/testsession"
	"github.com/abhisek/mocktest/internal/ui/components"
)

// outcome builds the screen shown once the session reaches a terminal
// phase.
func (s *TakeScreen) outcome() screen.Screen {
	snap := s.snap
	opts := message.Options{Title: s.Title()}

	switch snap.Phase {
	case testsession.PhaseSubmitted:
		opts.Heading = "Test submitted"
		opts.Tone = message.ToneSuccess
		if s.autoSubmitted {
			opts.Body = append(opts.Body, "Time ran out, so your answers were submitted automatically.")
		}
		if r := snap.Result; r != nil && r.MaxScore > 0 {
			opts.Body = append(opts.Body, fmt.Sprintf("Score: %d / %d", r.Score, r.MaxScore))
		}
		opts.Body = append(opts.Body, fmt.Sprintf("You answered %d of %d questions.", snap.Answered, snap.QuestionCount()))
		if hasWritten(snap) {
			opts.Body = append(opts.Body, "Written answers are graded separately.")
		}
		opts.Actions = s.reviewAction()

	case testsession.PhaseAttemptsExceeded:
		opts.Heading = "No attempts left"
		opts.Tone = message.ToneWarning
		allowed := 0
		if snap.Test != nil {
			allowed = snap.Test.AllowedAttempts
		}
		opts.Body = []string{fmt.Sprintf("You have used %d of %d attempts for this test.", snap.AttemptsUsed, allowed)}
		opts.Actions = s.reviewAction()

	case testsession.PhaseEmptyTest:
		opts.Heading = "This test has no questions yet"
		opts.Tone = message.ToneInfo
		opts.Body = []string{"Check back later or ask your teacher."}

	case testsession.PhaseLoadError:
		opts.Tone = message.ToneError
		var le *testsession.LoadError
		if errors.As(snap.Err, &le) && le.NotFound {
			opts.Heading = "Test not found"
			opts.Body = []string{fmt.Sprintf("No test with id %q is available.", snap.TestID)}
		} else {
			opts.Heading = "Couldn't load the test"
			if snap.Err != nil {
				opts.Body = []string{snap.Err.Error()}
			}
			opts.Actions = append(opts.Actions, components.MenuItem{
				Label:  "Retry",
				Hotkey: "r",
				Action: func() tea.Cmd {
					fresh := New(s.opts)
					return func() tea.Msg { return router.ReplaceScreenMsg{Screen: fresh} }
				},
			})
		}
	}

	opts.Actions = append(opts.Actions, message.Quit())
	return message.New(opts)
}

func (s *TakeScreen) reviewAction() []components.MenuItem {
	if s.opts.Review == nil {
		return nil
	}
	open, id := s.opts.Review, s.snap.TestID
	return []components.MenuItem{{
		Label:  "Review answers",
		Hotkey: "v",
		Action: func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: open(id)} }
		},
	}}
}

func hasWritten(snap testsession.Snapshot) bool {
	if snap.Test == nil {
		return false
	}
	for _, q := range snap.Test.Questions {
		if !q.IsChoice() {
			return true
		}
	}
	return false
}
