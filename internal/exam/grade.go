package exam

import "slices"

// Verdict is the outcome of checking one answer against a question's
// correct-answer data.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	// VerdictManual marks free-text answers, which are never auto-graded.
	VerdictManual Verdict = "manual"
)

// Grade checks an answer. Single-choice answers must match the correct
// option exactly; multi-choice answers must equal the correct set. Free-text
// answers always return VerdictManual. A choice question with no correct
// answers configured can't be auto-graded and is also VerdictManual.
func Grade(q Question, a Answer) Verdict {
	if !q.IsChoice() {
		return VerdictManual
	}
	if len(q.CorrectAnswers) == 0 {
		return VerdictManual
	}
	if a.Kind() != KindFor(q.Type) || a.IsEmpty() {
		return VerdictIncorrect
	}

	switch q.Type {
	case TypeSingleChoice:
		sel, _ := a.Selected()
		if sel == q.CorrectAnswers[0] {
			return VerdictCorrect
		}
	case TypeMultiChoice:
		want := MultiChoice(q.CorrectAnswers...)
		if slices.Equal(a.Options(), want.Options()) {
			return VerdictCorrect
		}
	}
	return VerdictIncorrect
}
