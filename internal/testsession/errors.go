package testsession

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInProgress is returned by operations that need a running attempt.
	ErrNotInProgress = errors.New("attempt is not in progress")

	// ErrUnknownQuestion is returned when an answer names a question that is
	// not part of the test.
	ErrUnknownQuestion = errors.New("question is not part of this test")

	// ErrAnswerKind is returned when the answer variant does not match the
	// question type.
	ErrAnswerKind = errors.New("answer type does not match question type")

	// ErrUnknownOption is returned when a choice answer selects an option the
	// question does not offer.
	ErrUnknownOption = errors.New("option is not offered by this question")

	// ErrTimeUp is returned when answering after the countdown reached zero.
	ErrTimeUp = errors.New("time is up")

	// ErrSubmitInFlight is returned when answering while the attempt is
	// being submitted.
	ErrSubmitInFlight = errors.New("submission in progress")

	// ErrAlreadyBegun is returned when Begin is called twice.
	ErrAlreadyBegun = errors.New("session already started")

	// ErrEmptyTest matches any *EmptyTestError via errors.Is.
	ErrEmptyTest = errors.New("test has no questions")
)

// LoadError indicates the test, its questions, the student identity or the
// prior results could not be fetched. No attempt state is created.
type LoadError struct {
	Op       string // what was being fetched
	NotFound bool
	Err      error
}

func (e *LoadError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("load %s: not found", e.Op)
	}
	return fmt.Sprintf("load %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EmptyTestError indicates the test has no questions.
type EmptyTestError struct {
	TestID string
}

func (e *EmptyTestError) Error() string {
	return fmt.Sprintf("test %s has no questions", e.TestID)
}

func (e *EmptyTestError) Is(target error) bool { return target == ErrEmptyTest }

// AttemptsExceededError indicates the student has no attempts left.
type AttemptsExceededError struct {
	TestID  string
	Used    int
	Allowed int
}

func (e *AttemptsExceededError) Error() string {
	return fmt.Sprintf("no attempts left for test %s (%d of %d used)", e.TestID, e.Used, e.Allowed)
}

// SubmissionError indicates the final submit failed. The attempt stays in
// progress with its answers intact so the submit can be retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit attempt: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
