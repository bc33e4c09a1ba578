package testsession

import (
	"time"

	"github.com/abhisek/mocktest/internal/exam"
)

// Phase is a state of the test session.
type Phase int

const (
	PhaseLoading          Phase = iota // Fetching test, questions and prior attempts
	PhaseAttemptsExceeded              // No attempts left; review instead
	PhaseLoadError                     // Test or questions could not be fetched
	PhaseEmptyTest                     // Test has no questions
	PhaseDetails                       // Showing instructions, clock not running
	PhaseInProgress                    // Answering questions
	PhaseSubmitted                     // Terminal
)

var phaseNames = map[Phase]string{
	PhaseLoading:          "loading",
	PhaseAttemptsExceeded: "attempts-exceeded",
	PhaseLoadError:        "load-error",
	PhaseEmptyTest:        "empty-test",
	PhaseDetails:          "details",
	PhaseInProgress:       "in-progress",
	PhaseSubmitted:        "submitted",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Terminal reports whether no further transition can leave p.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseAttemptsExceeded, PhaseLoadError, PhaseEmptyTest, PhaseSubmitted:
		return true
	}
	return false
}

// Snapshot is a point-in-time copy of the session used for rendering.
type Snapshot struct {
	Phase     Phase
	TestID    string
	StudentID string
	AttemptID string

	// Test is nil until loading succeeds.
	Test *exam.Test

	AttemptsUsed int
	Current      int
	Remaining    int
	Deadline     time.Time

	Answers  map[string]exam.Answer
	Palette  []PaletteEntry
	Answered int

	// Resumed is true when the attempt was restored from local storage.
	Resumed    bool
	Submitting bool

	Result *exam.Result
	Err    error
}

// CurrentQuestion returns the question under the navigation pointer.
func (s Snapshot) CurrentQuestion() (exam.Question, bool) {
	if s.Test == nil || s.Current < 0 || s.Current >= len(s.Test.Questions) {
		return exam.Question{}, false
	}
	return s.Test.Questions[s.Current], true
}

// QuestionCount returns the number of questions in the test.
func (s Snapshot) QuestionCount() int {
	if s.Test == nil {
		return 0
	}
	return len(s.Test.Questions)
}

// AttemptsLeft returns how many attempts remain including the current one.
func (s Snapshot) AttemptsLeft() int {
	if s.Test == nil {
		return 0
	}
	left := s.Test.AllowedAttempts - s.AttemptsUsed
	if left < 0 {
		return 0
	}
	return left
}
