// Package review pairs a completed attempt with the test's answer key.
package review

import (
	"strings"

	"github.com/abhisek/mocktest/internal/exam"
)

// Item is one question of the review.
type Item struct {
	Index    int
	Question exam.Question
	Given    exam.Answer
	Answered bool
	Verdict  exam.Verdict
}

// CorrectText renders the reference answer as option text, or the stored
// reference for free-text questions.
func (it Item) CorrectText() string {
	if len(it.Question.CorrectAnswers) == 0 {
		return ""
	}
	if !it.Question.IsChoice() {
		return strings.Join(it.Question.CorrectAnswers, "\n")
	}
	parts := make([]string, 0, len(it.Question.CorrectAnswers))
	for _, id := range it.Question.CorrectAnswers {
		parts = append(parts, optionLabel(it.Question, id))
	}
	return strings.Join(parts, ", ")
}

// GivenText renders the student's answer for display.
func (it Item) GivenText() string {
	if !it.Answered {
		return ""
	}
	if !it.Question.IsChoice() {
		return it.Given.TextValue()
	}
	ids := it.Given.Options()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, optionLabel(it.Question, id))
	}
	return strings.Join(parts, ", ")
}

func optionLabel(q exam.Question, id string) string {
	if text := q.OptionText(id); text != "" && text != id {
		return id + ") " + text
	}
	return id
}

// Summary aggregates the review.
type Summary struct {
	Score     int
	MaxScore  int
	Correct   int
	Incorrect int
	Manual    int
	Total     int
}

// Review is the rendered model of a completed attempt.
type Review struct {
	Test   exam.Test
	Result *exam.Result
	Items  []Item
	Summary
}

// Build grades every question of data.Test against the answers recorded in
// data.Result. A missing result yields an all-unanswered review.
func Build(data exam.ReviewData) *Review {
	r := &Review{Test: data.Test, Result: data.Result}
	var answers map[string]exam.Answer
	if data.Result != nil {
		answers = data.Result.Answers
		r.Score = data.Result.Score
		r.MaxScore = data.Result.MaxScore
	}

	r.Items = make([]Item, len(data.Test.Questions))
	for i, q := range data.Test.Questions {
		a, ok := answers[q.ID]
		item := Item{
			Index:    i,
			Question: q,
			Given:    a,
			Answered: ok && !a.IsEmpty(),
			Verdict:  exam.Grade(q, a),
		}
		switch item.Verdict {
		case exam.VerdictCorrect:
			r.Correct++
		case exam.VerdictIncorrect:
			r.Incorrect++
		default:
			r.Manual++
		}
		r.Items[i] = item
	}
	r.Total = len(r.Items)
	return r
}

// Palette returns the verdict of every question in order.
func (r *Review) Palette() []exam.Verdict {
	out := make([]exam.Verdict, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Verdict
	}
	return out
}

// Item returns the i-th item clamped to range.
func (r *Review) Item(i int) (Item, bool) {
	if len(r.Items) == 0 {
		return Item{}, false
	}
	i = max(0, min(i, len(r.Items)-1))
	return r.Items[i], true
}
