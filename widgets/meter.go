package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderMeter renders a horizontal fill bar of width cells. Each filled cell
// is coloured by color(position), position running 0-1 along the bar.
func RenderMeter(fraction float64, width int, full, empty rune, color func(float64) lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)

	var out strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			out.WriteRune(empty)
			continue
		}
		pos := 0.0
		if width > 1 {
			pos = float64(i) / float64(width-1)
		}
		out.WriteString(lipgloss.NewStyle().Foreground(color(pos)).Render(string(full)))
	}
	return out.String()
}

// RenderStats formats label/value rows with aligned labels
func RenderStats(rows []Stat) string {
	var lines []string
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %-14s %s", r.Label, r.Value))
	}
	return strings.Join(lines, "\n")
}

// Stat is a single label and its value
type Stat struct {
	Label string
	Value string
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
