package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CellWidth is the terminal columns taken by one step
const CellWidth = 2

// Cell is one rendered step. A non-zero Fill is drawn in the gap column
// after the glyph so runs read as one bar.
type Cell struct {
	Glyph rune
	Fill  rune
	Style lipgloss.Style
}

// GridRow is a labelled row of cells
type GridRow struct {
	Label      string
	LabelStyle lipgloss.Style
	Cells      []Cell
}

// RenderGrid lays rows out top to bottom, labels padded to labelWidth
func RenderGrid(rows []GridRow, labelWidth int) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		var line strings.Builder
		line.WriteString(row.LabelStyle.Width(labelWidth).Render(row.Label))
		for _, c := range row.Cells {
			gap := " "
			if c.Fill != 0 {
				gap = string(c.Fill)
			}
			line.WriteString(c.Style.Render(string(c.Glyph) + gap))
		}
		lines[i] = line.String()
	}
	return strings.Join(lines, "\n")
}

// RenderRuler draws the step ruler: beat numbers at beat starts, a marker
// over the playhead column. playhead < 0 hides the marker.
func RenderRuler(steps, stepsPerBeat, playhead, labelWidth int, marker rune, markerStyle, style lipgloss.Style) string {
	var line strings.Builder
	line.WriteString(strings.Repeat(" ", labelWidth))
	for i := range steps {
		switch {
		case i == playhead:
			line.WriteString(markerStyle.Render(string(marker) + " "))
		case stepsPerBeat > 0 && i%stepsPerBeat == 0:
			label := beatLabel(i/stepsPerBeat + 1)
			line.WriteString(style.Render(label))
		default:
			line.WriteString(strings.Repeat(" ", CellWidth))
		}
	}
	return line.String()
}

func beatLabel(n int) string {
	return fmt.Sprintf("%-*d", CellWidth, n%100)
}
