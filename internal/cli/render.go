package cli

import (
	"fmt"
	"strings"

	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Separator is a row value that draws a horizontal rule inside a table.
const Separator = "---"

const titleWidth = 55

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// MinWidths pads columns to at least these widths.
	MinWidths []int
}

// RenderTitle renders a centered title bar in a bordered box, colored with
// the active theme.
func RenderTitle(title string) string {
	t := theme.Active
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(titleWidth).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(fg(t.TextPrimary).Bold(true).Render(title))
}

func (t Table) columns() []int {
	n := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > n && !(len(row) == 1 && row[0] == Separator) {
			n = len(row)
		}
	}
	widths := make([]int, n)
	copy(widths, t.MinWidths)
	grow := func(cells []string) {
		for i, c := range cells {
			if i < n {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}
	grow(t.Headers)
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == Separator {
			continue
		}
		grow(row)
	}
	return widths
}

// RenderTable renders a bordered table. The first column is left-aligned and
// the rest are right-aligned.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}
	th := theme.Active
	dim := fg(th.TextDim)
	head := fg(th.Accent).Bold(true)
	val := fg(th.TextPrimary)
	widths := t.columns()

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(dim.Render(left))
		for i, w := range widths {
			b.WriteString(dim.Render(strings.Repeat("─", w+2)))
			if i < len(widths)-1 {
				b.WriteString(dim.Render(mid))
			}
		}
		b.WriteString(dim.Render(right))
		b.WriteByte('\n')
	}
	line := func(cells []string, style lipgloss.Style, alignRight bool) {
		b.WriteString(dim.Render("│"))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			gap := strings.Repeat(" ", max(w-lipgloss.Width(cell), 0))
			if i == 0 || !alignRight {
				b.WriteString(style.Render(" " + cell + gap + " "))
			} else {
				b.WriteString(style.Render(" " + gap + cell + " "))
			}
			if i < len(widths)-1 {
				b.WriteString(dim.Render("│"))
			}
		}
		b.WriteString(dim.Render("│"))
		b.WriteByte('\n')
	}

	if t.Title != "" {
		b.WriteString("  " + head.Render(t.Title) + "\n")
	}
	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, head, false)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == Separator {
			rule("├", "┼", "┤")
			continue
		}
		line(row, val, true)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline scales values against their peak into block characters.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	top := len(sparkBlocks) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		out[i] = sparkBlocks[min(max(int(v/peak*float64(top)), 0), top)]
	}
	return string(out)
}

// RenderHorizontalBar renders a labeled bar scaled against maxValue.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return "  " + label
	}
	n := max(int(value/maxValue*float64(maxWidth)), 0)
	return "  " + label + " " + fg(theme.Active.Blue).Render(strings.Repeat("█", n))
}

// RenderMoney renders an amount in the savings color.
func RenderMoney(v float64) string {
	return fg(theme.Active.Savings()).Render(FormatMoney(v))
}

// RenderWarning renders a one-line warning for non-fatal problems.
func RenderWarning(msg string) string {
	return fg(theme.Active.Orange).Render("  ! " + msg)
}

// RenderError renders an engine error in place of the section it blocked.
func RenderError(section string, err error) string {
	return fg(theme.Active.Red).Render(fmt.Sprintf("  %s unavailable: %v", section, err))
}

// RenderCorrelation colors a correlation coefficient by sign and strength.
func RenderCorrelation(r float64) string {
	s := fmt.Sprintf("%+.2f", r)
	switch {
	case r >= 0.5:
		return fg(theme.Active.Green).Render(s)
	case r <= -0.5:
		return fg(theme.Active.Red).Render(s)
	default:
		return fg(theme.Active.TextMuted).Render(s)
	}
}
