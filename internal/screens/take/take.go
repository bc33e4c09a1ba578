// Package take is the screen on which a student sits a timed test.
package take

import (
	"context"
	"errors"
	"strconv"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/router"
	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/testsession"
	"github.com/abhisek/mocktest/internal/ui/components"
	"github.com/abhisek/mocktest/internal/ui/layout"
)

// Options configures the take screen.
type Options struct {
	TestID string

	// NewSession builds a fresh controller. It is called again when the
	// student retries after a load failure.
	NewSession func() *testsession.Controller

	// Review opens the review screen for a test. Nil hides the action.
	Review func(testID string) screen.Screen
}

// TakeScreen implements screen.Screen for a single attempt.
type TakeScreen struct {
	opts Options
	ctrl *testsession.Controller
	snap testsession.Snapshot

	widgetFor string
	options   components.OptionList
	input     components.AnswerInput

	confirmSubmit bool
	confirmLeave  bool
	jumping       bool
	jumpBuf       string
	autoSubmitted bool
	notice        string
}

var _ screen.Screen = (*TakeScreen)(nil)
var _ screen.KeyHintProvider = (*TakeScreen)(nil)
var _ screen.StatusProvider = (*TakeScreen)(nil)
var _ screen.InputCapturer = (*TakeScreen)(nil)

// New creates the take screen. Loading starts in Init.
func New(opts Options) *TakeScreen {
	ctrl := opts.NewSession()
	return &TakeScreen{opts: opts, ctrl: ctrl, snap: ctrl.Snapshot()}
}

func (s *TakeScreen) Init() tea.Cmd {
	ctrl, id := s.ctrl, s.opts.TestID
	return func() tea.Msg {
		return loadedMsg{Err: ctrl.Begin(context.Background(), id)}
	}
}

func (s *TakeScreen) Title() string {
	if s.snap.Test != nil && s.snap.Test.Title != "" {
		return s.snap.Test.Title
	}
	return "Test"
}

// Status shows the countdown while the attempt runs.
func (s *TakeScreen) Status() string {
	if s.snap.Phase != testsession.PhaseInProgress {
		return ""
	}
	return components.Countdown(s.snap.Remaining)
}

// CapturingInput keeps Esc inside the screen while an attempt runs.
func (s *TakeScreen) CapturingInput() bool {
	return s.snap.Phase == testsession.PhaseInProgress
}

func (s *TakeScreen) KeyHints() []layout.KeyHint {
	switch s.snap.Phase {
	case testsession.PhaseLoading:
		return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	case testsession.PhaseDetails:
		label := "Start"
		if s.snap.Resumed {
			label = "Resume"
		}
		return []layout.KeyHint{
			{Key: "Enter", Description: label},
			{Key: "q", Description: "Quit"},
		}
	}

	switch {
	case s.confirmSubmit:
		return []layout.KeyHint{{Key: "y", Description: "Submit"}, {Key: "n", Description: "Keep working"}}
	case s.confirmLeave:
		return []layout.KeyHint{{Key: "y", Description: "Leave"}, {Key: "n", Description: "Stay"}}
	case s.snap.Submitting:
		return []layout.KeyHint{{Key: "", Description: "Submitting..."}}
	case s.input.Focused():
		return []layout.KeyHint{{Key: "Esc", Description: "Done editing"}}
	case s.jumping:
		return []layout.KeyHint{{Key: "0-9", Description: "Question number"}, {Key: "Enter", Description: "Go"}, {Key: "Esc", Description: "Cancel"}}
	}

	hints := []layout.KeyHint{{Key: "←→", Description: "Prev/Next"}, {Key: "g", Description: "Go to"}}
	if q, ok := s.snap.CurrentQuestion(); ok {
		if q.IsChoice() {
			hints = append(hints, layout.KeyHint{Key: "1-9", Description: "Select"})
		} else {
			hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Edit answer"})
		}
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+S", Description: "Submit"},
		layout.KeyHint{Key: "Esc", Description: "Leave"},
	)
}

func (s *TakeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.refresh()
		if s.snap.Phase.Terminal() {
			return s, s.finish()
		}
		return s, nil

	case startedMsg:
		s.refresh()
		s.noteError(msg.Err)
		if s.snap.Phase == testsession.PhaseSubmitted {
			s.autoSubmitted = true
		}
		if s.snap.Phase.Terminal() {
			return s, s.finish()
		}
		if s.snap.Phase == testsession.PhaseInProgress {
			return s, tickCmd()
		}
		return s, nil

	case tickMsg:
		if s.snap.Phase != testsession.PhaseInProgress {
			return s, nil
		}
		return s, s.tick()

	case tickedMsg:
		s.refresh()
		if msg.Err != nil {
			s.notice = "Automatic submission failed: " + msg.Err.Error() + ". Press Ctrl+S to try again."
		}
		if s.snap.Phase == testsession.PhaseSubmitted {
			s.autoSubmitted = msg.Remaining <= 0
			return s, s.finish()
		}
		if s.snap.Phase == testsession.PhaseInProgress {
			if s.snap.Remaining <= 0 && s.input.Focused() {
				s.input.Blur()
			}
			return s, tickCmd()
		}
		return s, nil

	case submittedMsg:
		s.refresh()
		s.noteError(msg.Err)
		if s.snap.Phase == testsession.PhaseSubmitted {
			return s, s.finish()
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.input.Focused() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// tick runs the controller tick off the UI loop since expiry submits over
// the network.
func (s *TakeScreen) tick() tea.Cmd {
	ctrl := s.ctrl
	return func() tea.Msg {
		rem, err := ctrl.Tick(context.Background())
		return tickedMsg{Remaining: rem, Err: err}
	}
}

func (s *TakeScreen) start() tea.Cmd {
	ctrl := s.ctrl
	return func() tea.Msg {
		return startedMsg{Err: ctrl.StartAttempt(context.Background())}
	}
}

func (s *TakeScreen) submit() tea.Cmd {
	ctrl := s.ctrl
	s.notice = ""
	s.snap.Submitting = true
	return func() tea.Msg {
		return submittedMsg{Err: ctrl.Submit(context.Background())}
	}
}

// finish swaps this screen for the outcome screen.
func (s *TakeScreen) finish() tea.Cmd {
	out := s.outcome()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: out}
	}
}

// refresh re-reads the controller and rebuilds the answer widget when the
// current question changed.
func (s *TakeScreen) refresh() {
	s.snap = s.ctrl.Snapshot()
	q, ok := s.snap.CurrentQuestion()
	if !ok || q.ID == s.widgetFor {
		return
	}
	s.widgetFor = q.ID
	a := s.snap.Answers[q.ID]
	if q.IsChoice() {
		s.options = components.NewOptionList(q, a)
		return
	}
	s.input = components.NewAnswerInput(q.Type == exam.TypeLongAnswer, a.TextValue())
}

func (s *TakeScreen) noteError(err error) {
	if err == nil {
		s.notice = ""
		return
	}
	var subErr *testsession.SubmissionError
	switch {
	case errors.As(err, &subErr):
		s.notice = "Could not submit: " + subErr.Err.Error() + ". Your answers are saved; press Ctrl+S to try again."
	case errors.Is(err, testsession.ErrTimeUp):
		s.notice = "Time is up. Press Ctrl+S to submit."
	case errors.Is(err, testsession.ErrSubmitInFlight):
		s.notice = "Submitting, please wait."
	default:
		s.notice = err.Error()
	}
}

func (s *TakeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	switch s.snap.Phase {
	case testsession.PhaseDetails:
		switch key {
		case "enter", "s":
			return s, s.start()
		case "q":
			return s, tea.Quit
		}
		return s, nil
	case testsession.PhaseInProgress:
		return s.handleAttemptKey(msg)
	}
	return s, nil
}

func (s *TakeScreen) handleAttemptKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirmSubmit {
		switch key {
		case "y", "Y":
			s.confirmSubmit = false
			return s, s.submit()
		case "n", "N", "esc":
			s.confirmSubmit = false
		}
		return s, nil
	}
	if s.confirmLeave {
		switch key {
		case "y", "Y":
			return s, tea.Quit
		case "n", "N", "esc":
			s.confirmLeave = false
		}
		return s, nil
	}
	if s.snap.Submitting {
		return s, nil
	}

	if s.input.Focused() {
		if key == "esc" {
			s.input.Blur()
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		if q, ok := s.snap.CurrentQuestion(); ok {
			s.record(q, exam.Text(s.input.Value()))
		}
		return s, cmd
	}

	if s.jumping {
		return s.handleJumpKey(key)
	}

	switch key {
	case "ctrl+s", "s":
		s.confirmSubmit = true
		return s, nil
	case "esc":
		s.confirmLeave = true
		return s, nil
	case "left", "p", "h":
		s.ctrl.Previous()
		s.refresh()
		return s, nil
	case "right", "n", "l":
		s.ctrl.Next()
		s.refresh()
		return s, nil
	case "home":
		s.ctrl.GoTo(0)
		s.refresh()
		return s, nil
	case "end":
		s.ctrl.GoTo(s.snap.QuestionCount() - 1)
		s.refresh()
		return s, nil
	case "g":
		s.jumping = true
		s.jumpBuf = ""
		return s, nil
	}

	q, ok := s.snap.CurrentQuestion()
	if !ok {
		return s, nil
	}
	if q.IsChoice() {
		var changed bool
		s.options, changed = s.options.Update(msg)
		if changed {
			s.record(q, s.options.Answer())
		}
		return s, nil
	}
	switch key {
	case "enter", "e", "i":
		if s.snap.Remaining <= 0 {
			s.noteError(testsession.ErrTimeUp)
			return s, nil
		}
		return s, s.input.Focus()
	}
	return s, nil
}

func (s *TakeScreen) handleJumpKey(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "esc":
		s.jumping = false
	case "backspace":
		if n := len(s.jumpBuf); n > 0 {
			s.jumpBuf = s.jumpBuf[:n-1]
		}
	case "enter":
		s.jumping = false
		if n, err := strconv.Atoi(s.jumpBuf); err == nil {
			s.ctrl.GoTo(n - 1)
			s.refresh()
		}
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' && len(s.jumpBuf) < 4 {
			s.jumpBuf += key
		}
	}
	return s, nil
}

// record stores a for q. When the controller rejects it the widget is
// rebuilt from the last accepted answer.
func (s *TakeScreen) record(q exam.Question, a exam.Answer) {
	err := s.ctrl.RecordAnswer(context.Background(), q.ID, a)
	if err != nil {
		s.input.Blur()
		s.widgetFor = ""
	}
	s.refresh()
	s.noteError(err)
}
