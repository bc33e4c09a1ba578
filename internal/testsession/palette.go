package testsession

import "github.com/abhisek/mocktest/internal/exam"

// Status is the palette state of one question.
type Status string

const (
	StatusCurrent    Status = "current"
	StatusAnswered   Status = "answered"
	StatusUnanswered Status = "unanswered"
)

// PaletteEntry describes one question slot in the navigation palette.
type PaletteEntry struct {
	Index      int
	QuestionID string
	Status     Status
}

// BuildPalette derives the palette from the questions, the current answers
// and the navigation pointer. The current question wins over answered.
func BuildPalette(questions []exam.Question, answers map[string]exam.Answer, current int) []PaletteEntry {
	out := make([]PaletteEntry, len(questions))
	for i, q := range questions {
		status := StatusUnanswered
		switch {
		case i == current:
			status = StatusCurrent
		case answered(answers, q.ID):
			status = StatusAnswered
		}
		out[i] = PaletteEntry{Index: i, QuestionID: q.ID, Status: status}
	}
	return out
}

func answered(answers map[string]exam.Answer, id string) bool {
	a, ok := answers[id]
	return ok && !a.IsEmpty()
}
