package exam

import "testing"

func choiceQuestion(qt QuestionType, correct ...string) Question {
	return Question{
		ID:     "q",
		Prompt: "Pick",
		Type:   qt,
		Options: []Option{
			{ID: "A", Text: "alpha"},
			{ID: "B", Text: "beta"},
			{ID: "C", Text: "gamma"},
		},
		CorrectAnswers: correct,
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		a    Answer
		want Verdict
	}{
		{"single exact", choiceQuestion(TypeSingleChoice, "B"), Choice("B"), VerdictCorrect},
		{"single wrong", choiceQuestion(TypeSingleChoice, "B"), Choice("A"), VerdictIncorrect},
		{"single unanswered", choiceQuestion(TypeSingleChoice, "B"), Choice(""), VerdictIncorrect},
		{"multi same set any order", choiceQuestion(TypeMultiChoice, "C", "A"), MultiChoice("A", "C"), VerdictCorrect},
		{"multi missing one", choiceQuestion(TypeMultiChoice, "A", "C"), MultiChoice("A"), VerdictIncorrect},
		{"multi extra one", choiceQuestion(TypeMultiChoice, "A", "C"), MultiChoice("A", "B", "C"), VerdictIncorrect},
		{"multi wrong variant", choiceQuestion(TypeMultiChoice, "A"), Choice("A"), VerdictIncorrect},
		{"no key configured", choiceQuestion(TypeSingleChoice), Choice("A"), VerdictManual},
		{"short answer", Question{Type: TypeShortAnswer, CorrectAnswers: []string{"Paris"}}, Text("Paris"), VerdictManual},
		{"long answer", Question{Type: TypeLongAnswer}, Text("essay"), VerdictManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grade(tt.q, tt.a); got != tt.want {
				t.Errorf("Grade() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGrade_MultiChoiceRoundTrip(t *testing.T) {
	q := choiceQuestion(TypeMultiChoice, "A", "C")
	stored := MultiChoice("A", "B").Toggle("B")
	if !stored.Equal(MultiChoice("A")) {
		t.Fatalf("stored = %v, want {A}", stored)
	}
	if got := Grade(q, stored); got != VerdictIncorrect {
		t.Errorf("Grade() = %s, want incorrect", got)
	}
}
