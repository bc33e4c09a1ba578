package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Cell is one square of a question palette.
type Cell struct {
	Label string
	Style lipgloss.Style
}

// NumberedCells labels n cells 1..n using style(i) for each.
func NumberedCells(n int, style func(i int) lipgloss.Style) []Cell {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Cell{Label: fmt.Sprintf("%d", i+1), Style: style(i)}
	}
	return cells
}

// Palette renders cells as a wrapped grid no wider than width.
func Palette(cells []Cell, width int) string {
	if len(cells) == 0 {
		return ""
	}
	labelWidth := 1
	for _, c := range cells {
		labelWidth = max(labelWidth, lipgloss.Width(c.Label))
	}
	cellWidth := labelWidth + 2
	perRow := max((width+1)/(cellWidth+1), 1)

	var rows []string
	var row []string
	for i, c := range cells {
		row = append(row, c.Style.Width(cellWidth).Align(lipgloss.Center).Render(c.Label))
		if len(row) == perRow || i == len(cells)-1 {
			rows = append(rows, strings.Join(row, " "))
			row = row[:0]
		}
	}
	return strings.Join(rows, "\n")
}
