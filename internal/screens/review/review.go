// Package review is the screen that walks through a completed attempt
// question by question.
package review

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/exam"
	rv "github.com/abhisek/mocktest/internal/review"
	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/ui/components"
	"github.com/abhisek/mocktest/internal/ui/layout"
	"github.com/abhisek/mocktest/internal/ui/theme"
)

// Loader fetches the answer key and latest result for a test.
type Loader func(ctx context.Context, testID string) (*exam.ReviewData, error)

type loadedMsg struct {
	Data *exam.ReviewData
	Err  error
}

// ReviewScreen implements screen.Screen for reviewing an attempt.
type ReviewScreen struct {
	testID  string
	load    Loader
	review  *rv.Review
	err     error
	current int
}

var _ screen.Screen = (*ReviewScreen)(nil)
var _ screen.KeyHintProvider = (*ReviewScreen)(nil)
var _ screen.StatusProvider = (*ReviewScreen)(nil)

// New creates a review screen for testID.
func New(testID string, load Loader) *ReviewScreen {
	return &ReviewScreen{testID: testID, load: load}
}

func (s *ReviewScreen) Init() tea.Cmd {
	load, id := s.load, s.testID
	return func() tea.Msg {
		data, err := load(context.Background(), id)
		return loadedMsg{Data: data, Err: err}
	}
}

func (s *ReviewScreen) Title() string {
	if s.review != nil && s.review.Test.Title != "" {
		return "Review: " + s.review.Test.Title
	}
	return "Review"
}

// Status shows the score once loaded.
func (s *ReviewScreen) Status() string {
	if s.review == nil || s.review.MaxScore == 0 {
		return ""
	}
	return theme.Body.Render(fmt.Sprintf("%d/%d", s.review.Score, s.review.MaxScore))
}

func (s *ReviewScreen) KeyHints() []layout.KeyHint {
	if s.review == nil {
		return []layout.KeyHint{{Key: "q", Description: "Quit"}}
	}
	return []layout.KeyHint{
		{Key: "←→", Description: "Prev/Next"},
		{Key: "Esc", Description: "Back"},
		{Key: "q", Description: "Quit"},
	}
}

func (s *ReviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.Err != nil {
			s.err = msg.Err
			return s, nil
		}
		s.review = rv.Build(*msg.Data)
		s.current = 0
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return s, tea.Quit
		case "left", "p", "h":
			s.move(-1)
		case "right", "n", "l":
			s.move(1)
		case "home":
			s.current = 0
		case "end":
			if s.review != nil {
				s.current = max(len(s.review.Items)-1, 0)
			}
		}
	}
	return s, nil
}

func (s *ReviewScreen) move(delta int) {
	if s.review == nil || len(s.review.Items) == 0 {
		return
	}
	s.current = max(0, min(s.current+delta, len(s.review.Items)-1))
}

func (s *ReviewScreen) View(width, height int) string {
	if s.err != nil {
		return "\n\n" + layout.Centered(width, theme.ErrorText, "Couldn't load the review") +
			"\n\n" + layout.Centered(width, theme.Body, s.err.Error())
	}
	if s.review == nil {
		return "\n\n" + layout.Centered(width, theme.Subtitle, "Loading review...")
	}

	inner := max(width-4, 20)
	var b strings.Builder
	b.WriteString(s.renderSummary())
	b.WriteString("\n\n")
	b.WriteString(indent(components.Palette(s.paletteCells(), inner)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner+2)))
	b.WriteString("\n\n")

	item, ok := s.review.Item(s.current)
	if !ok {
		b.WriteString(indent(theme.Hint.Render("This test has no questions.")))
		return b.String()
	}
	b.WriteString(indent(renderItem(item, len(s.review.Items), inner)))
	return b.String()
}

func (s *ReviewScreen) renderSummary() string {
	r := s.review
	if r.Result == nil {
		return indent(theme.Warning.Render("No completed attempt yet."))
	}
	parts := []string{
		theme.Correct.Render(fmt.Sprintf("%d correct", r.Correct)),
		theme.Incorrect.Render(fmt.Sprintf("%d incorrect", r.Incorrect)),
	}
	if r.Manual > 0 {
		parts = append(parts, theme.NeedsGrading.Render(fmt.Sprintf("%d to be graded", r.Manual)))
	}
	line := fmt.Sprintf("Score %d / %d   ", r.Score, r.MaxScore) + strings.Join(parts, "   ")
	if !r.Result.CompletedAt.IsZero() {
		line += theme.Hint.Render("   submitted " + r.Result.CompletedAt.Local().Format("Jan 2 15:04"))
	}
	return indent(line)
}

func (s *ReviewScreen) paletteCells() []components.Cell {
	cells := make([]components.Cell, len(s.review.Items))
	for i, it := range s.review.Items {
		style := verdictCell(it.Verdict)
		if i == s.current {
			style = style.Underline(true).Bold(true)
		}
		cells[i] = components.Cell{Label: fmt.Sprintf("%d", i+1), Style: style}
	}
	return cells
}

func verdictCell(v exam.Verdict) lipgloss.Style {
	base := lipgloss.NewStyle().Foreground(theme.BgDark)
	switch v {
	case exam.VerdictCorrect:
		return base.Background(theme.Success)
	case exam.VerdictIncorrect:
		return base.Background(theme.Error)
	default:
		return base.Background(theme.Manual)
	}
}

func renderItem(it rv.Item, total, width int) string {
	var b strings.Builder
	head := fmt.Sprintf("Question %d of %d  ", it.Index+1, total)
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(head))
	b.WriteString(verdictLabel(it.Verdict))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Foreground(theme.Text).Bold(true).Render(it.Question.Prompt))
	b.WriteString("\n\n")

	if it.Question.IsChoice() {
		for _, o := range it.Question.Options {
			mark := "  "
			style := theme.Unselected
			correct := contains(it.Question.CorrectAnswers, o.ID)
			given := it.Given.Contains(o.ID)
			switch {
			case correct:
				mark, style = "✓ ", theme.Correct
			case given:
				mark, style = "✗ ", theme.Incorrect
			}
			line := fmt.Sprintf("%s%s) %s", mark, o.ID, o.Text)
			if given {
				line += theme.Hint.Render("  (your answer)")
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	} else {
		given := it.GivenText()
		if given == "" {
			given = theme.Hint.Render("(no answer)")
		}
		b.WriteString(theme.Hint.Render("Your answer"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(given))
		b.WriteString("\n")
		if ref := it.CorrectText(); ref != "" {
			b.WriteString("\n")
			b.WriteString(theme.Hint.Render("Reference answer"))
			b.WriteString("\n")
			b.WriteString(theme.Correct.Width(width).Render(ref))
			b.WriteString("\n")
		}
	}

	if it.Question.IsChoice() && !it.Answered {
		b.WriteString(theme.Hint.Render("Not answered."))
		b.WriteString("\n")
	}
	if it.Question.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(theme.TextDim).Render(it.Question.Explanation))
	}
	return b.String()
}

func verdictLabel(v exam.Verdict) string {
	switch v {
	case exam.VerdictCorrect:
		return theme.Correct.Render("Correct")
	case exam.VerdictIncorrect:
		return theme.Incorrect.Render("Incorrect")
	default:
		return theme.NeedsGrading.Render("Graded by teacher")
	}
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}
