package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderSwatch renders a single colored glyph
func RenderSwatch(color lipgloss.Color, glyph rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(glyph))
}

// LegendItem is one glyph in the legend
type LegendItem struct {
	Color lipgloss.Color
	Glyph rune
	Name  string
}

// RenderLegendItem renders a single legend item: "■ name"
func RenderLegendItem(item LegendItem) string {
	return fmt.Sprintf("%s %s", RenderSwatch(item.Color, item.Glyph), item.Name)
}

// RenderLegend renders items on one line
func RenderLegend(items []LegendItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = RenderLegendItem(item)
	}
	return strings.Join(parts, "   ")
}
