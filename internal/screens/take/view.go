package take

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mocktest/internal/exam"
	"github.com/abhisek/mocktest/internal/testsession"
	"github.com/abhisek/mocktest/internal/ui/components"
	"github.com/abhisek/mocktest/internal/ui/layout"
	"github.com/abhisek/mocktest/internal/ui/theme"
)

func (s *TakeScreen) View(width, height int) string {
	switch s.snap.Phase {
	case testsession.PhaseDetails:
		return s.renderDetails(width)
	case testsession.PhaseInProgress:
		if s.confirmSubmit {
			return s.renderSubmitConfirm(width)
		}
		if s.confirmLeave {
			return renderLeaveConfirm(width)
		}
		return s.renderAttempt(width)
	}
	return renderLoading(width)
}

func renderLoading(width int) string {
	return "\n\n" + layout.Centered(width, theme.Subtitle, "Loading test...")
}

func (s *TakeScreen) renderDetails(width int) string {
	t := s.snap.Test
	if t == nil {
		return renderLoading(width)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, theme.Title, t.Title))
	b.WriteString("\n")
	if t.ExamType != "" {
		b.WriteString(layout.Centered(width, theme.Subtitle, t.ExamType))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var card strings.Builder
	if t.Description != "" {
		card.WriteString(lipgloss.NewStyle().Width(min(60, width-10)).Render(t.Description))
		card.WriteString("\n\n")
	}
	card.WriteString(fmt.Sprintf("Questions       %d\n", s.snap.QuestionCount()))
	card.WriteString(fmt.Sprintf("Time limit      %s\n", components.FormatClock(t.DurationSeconds())))
	card.WriteString(fmt.Sprintf("Attempts        %d used of %d", s.snap.AttemptsUsed, t.AllowedAttempts))

	if s.snap.Resumed {
		card.WriteString("\n\n")
		card.WriteString(theme.Warning.Render(fmt.Sprintf(
			"Resuming your attempt: %s left, %d answered.",
			components.FormatClock(s.snap.Remaining), s.snap.Answered)))
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Card.Render(card.String())))
	b.WriteString("\n\n")

	prompt := "Press Enter to start. The timer begins immediately."
	if s.snap.Resumed {
		prompt = "Press Enter to resume. The timer kept running while you were away."
	}
	b.WriteString(layout.Centered(width, theme.Hint, prompt))
	return b.String()
}

func (s *TakeScreen) renderAttempt(width int) string {
	q, ok := s.snap.CurrentQuestion()
	if !ok {
		return renderLoading(width)
	}
	inner := max(width-4, 20)

	var b strings.Builder

	position := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d of %d", s.snap.Current+1, s.snap.QuestionCount()))
	progress := components.NewProgressBar("Answered", s.snap.Answered, s.snap.QuestionCount(), 36).View()
	gap := max(width-lipgloss.Width(position)-lipgloss.Width(progress)-2, 1)
	b.WriteString(position + strings.Repeat(" ", gap) + progress)
	b.WriteString("\n\n")

	b.WriteString(indent(components.Palette(s.paletteCells(), inner)))
	b.WriteString("\n")
	if s.jumping {
		b.WriteString(indent(theme.Warning.Render("Go to question: " + s.jumpBuf + "_")))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner+2)))
	b.WriteString("\n\n")

	b.WriteString(indent(lipgloss.NewStyle().Width(inner).Foreground(theme.Text).Bold(true).Render(q.Prompt)))
	b.WriteString("\n")
	if q.Image != "" {
		b.WriteString(indent(theme.Hint.Render("Image: " + q.Image)))
		b.WriteString("\n")
	}
	b.WriteString(indent(theme.Hint.Render(typeHint(q.Type))))
	b.WriteString("\n\n")

	if q.IsChoice() {
		b.WriteString(indent(s.options.View()))
	} else {
		s.input.SetWidth(min(inner-4, 80))
		b.WriteString(indent(s.input.View()))
		if !s.input.Focused() {
			b.WriteString("\n")
			b.WriteString(indent(theme.Hint.Render("Press Enter to edit, Esc when done.")))
		}
	}
	b.WriteString("\n")

	if s.snap.Submitting {
		b.WriteString("\n")
		b.WriteString(indent(theme.Warning.Render("Submitting...")))
	} else if s.notice != "" {
		b.WriteString("\n")
		b.WriteString(indent(lipgloss.NewStyle().Width(inner).Inherit(theme.ErrorText).Render(s.notice)))
	}
	return b.String()
}

func (s *TakeScreen) paletteCells() []components.Cell {
	cells := make([]components.Cell, len(s.snap.Palette))
	for i, e := range s.snap.Palette {
		style := theme.CellUnanswered
		switch e.Status {
		case testsession.StatusCurrent:
			style = theme.CellCurrent
		case testsession.StatusAnswered:
			style = theme.CellAnswered
		}
		cells[i] = components.Cell{Label: fmt.Sprintf("%d", e.Index+1), Style: style}
	}
	return cells
}

func typeHint(t exam.QuestionType) string {
	switch t {
	case exam.TypeSingleChoice:
		return "Choose one option."
	case exam.TypeMultiChoice:
		return "Choose all that apply."
	case exam.TypeLongAnswer:
		return "Write a full answer."
	default:
		return "Type a short answer."
	}
}

func (s *TakeScreen) renderSubmitConfirm(width int) string {
	total := s.snap.QuestionCount()
	lines := []string{
		theme.Warning.Render("Submit your answers?"),
		"",
		fmt.Sprintf("Answered %d of %d questions.", s.snap.Answered, total),
	}
	if left := total - s.snap.Answered; left > 0 {
		lines = append(lines, theme.ErrorText.Render(fmt.Sprintf("%d unanswered.", left)))
	}
	lines = append(lines, "", "You can't change answers after submitting.", "", "[y] Submit   [n] Keep working")
	return "\n\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Dialog.Render(strings.Join(lines, "\n")))
}

func renderLeaveConfirm(width int) string {
	lines := []string{
		theme.Warning.Render("Leave the test?"),
		"",
		"Your answers are saved on this device.",
		"The timer keeps running while you are away.",
		"",
		"[y] Leave   [n] Stay",
	}
	return "\n\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Dialog.Render(strings.Join(lines, "\n")))
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
