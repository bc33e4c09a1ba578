package exam

import "time"

// QuestionType identifies how a question is answered.
type QuestionType string

const (
	TypeSingleChoice QuestionType = "single-choice"
	TypeMultiChoice  QuestionType = "multi-choice"
	TypeShortAnswer  QuestionType = "short-answer"
	TypeLongAnswer   QuestionType = "long-answer"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeSingleChoice, TypeMultiChoice, TypeShortAnswer, TypeLongAnswer:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from a list of options.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultiChoice
}

// Option is a selectable choice for a choice question.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Question is a single prompt within a test.
type Question struct {
	ID      string       `json:"id" yaml:"id"`
	Prompt  string       `json:"prompt" yaml:"prompt"`
	Image   string       `json:"image,omitempty" yaml:"image,omitempty"`
	Type    QuestionType `json:"type" yaml:"type"`
	Options []Option     `json:"options,omitempty" yaml:"options,omitempty"`

	// CorrectAnswers holds option IDs for choice questions, or a single
	// reference answer for free-text questions. Empty while taking a test.
	CorrectAnswers []string `json:"correctAnswers,omitempty" yaml:"correctAnswers,omitempty"`
	Explanation    string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// IsChoice reports whether the question is single- or multi-choice.
func (q Question) IsChoice() bool {
	return q.Type.IsChoice()
}

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// OptionText returns the display text for option id, or id itself when the
// option is unknown.
func (q Question) OptionText(id string) string {
	for _, o := range q.Options {
		if o.ID == id {
			return o.Text
		}
	}
	return id
}

// Test is an ordered set of questions with a time limit and an attempt cap.
type Test struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description" yaml:"description"`
	DurationMinutes int        `json:"duration" yaml:"duration"`
	AllowedAttempts int        `json:"allowedAttempts" yaml:"allowedAttempts"`
	ExamType        string     `json:"examType,omitempty" yaml:"examType,omitempty"`
	Questions       []Question `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// DurationSeconds returns the time limit in seconds.
func (t Test) DurationSeconds() int {
	if t.DurationMinutes < 0 {
		return 0
	}
	return t.DurationMinutes * 60
}

// Question returns the question with the given id.
func (t Test) Question(id string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// SubmitReason records why an attempt was submitted.
type SubmitReason string

const (
	ReasonManual  SubmitReason = "manual"
	ReasonExpired SubmitReason = "expired"
)

// Submission is the payload handed to the result store when an attempt ends.
type Submission struct {
	TestID      string            `json:"testId"`
	AttemptID   string            `json:"attemptId"`
	Answers     map[string]Answer `json:"answers"`
	CompletedAt time.Time         `json:"completedAt"`
	Reason      SubmitReason      `json:"reason"`
}

// Result is a graded attempt as recorded by the result store.
type Result struct {
	ID          string            `json:"id"`
	TestID      string            `json:"testId"`
	StudentID   string            `json:"studentId"`
	AttemptID   string            `json:"attemptId,omitempty"`
	Score       int               `json:"score"`
	MaxScore    int               `json:"maxScore"`
	Answers     map[string]Answer `json:"answers"`
	CompletedAt time.Time         `json:"completedAt"`
}

// ReviewData bundles a test carrying its correct answers with the result
// being reviewed. Result is nil when the student has no attempts.
type ReviewData struct {
	Test   Test    `json:"test"`
	Result *Result `json:"result,omitempty"`
}
