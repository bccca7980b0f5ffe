package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as a row of block characters scaled to the peak.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart with a labeled y axis. labels, when
// given, must match values in length and are spread along the x axis.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	// Axis labels never exceed 7 columns, so this leaves one column per bar.
	if len(values) > width-8 {
		values, labels = downsample(values, labels, width-8)
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 1)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(FormatAxis(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = FormatAxis(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	n := len(values)

	gap := 0
	barW := max(chartW/n, 1)
	if barW >= 3 {
		gap = 1
		barW = max((chartW-(n-1))/n, 1)
	}
	barW = min(barW, 6)
	axisLen := n*barW + max(0, n-1)*gap

	eighths := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blankStyle.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(eighths[idx]), barW)))
			default:
				b.WriteString(blankStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if len(labels) == n && n > 0 {
		b.WriteString("\n")
		b.WriteString(blankStyle.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(axisLabels(labels, barW+gap, axisLen)))
	}
	return b.String()
}

// axisLabels places labels under their bars, skipping any that would collide.
func axisLabels(labels []string, stride, axisLen int) string {
	buf := []rune(strings.Repeat(" ", axisLen))
	lastEnd := -1
	for i, lbl := range labels {
		pos := i * stride
		r := []rune(lbl)
		end := pos + len(r)
		if pos <= lastEnd || end > axisLen {
			continue
		}
		copy(buf[pos:end], r)
		lastEnd = end
	}
	return strings.TrimRight(string(buf), " ")
}

func downsample(values []float64, labels []string, n int) ([]float64, []string) {
	out := make([]float64, n)
	var outLabels []string
	if len(labels) == len(values) {
		outLabels = make([]string, n)
	}
	for i, v := range values {
		j := i * n / len(values)
		out[j] += v
		if outLabels != nil && outLabels[j] == "" {
			outLabels[j] = labels[i]
		}
	}
	return out, outLabels
}

// Scatter plots (xs, ys) as dots and overlays the line (lx, ly). Both series
// share axes scaled to their combined extent.
func Scatter(xs, ys, lx, ly []float64, width, height int) string {
	t := theme.Active
	if width < 20 || height < 4 || (len(xs) == 0 && len(lx) == 0) {
		return ""
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	maxX := 0.0
	for _, series := range [][2][]float64{{xs, ys}, {lx, ly}} {
		for i, x := range series[0] {
			maxX = max(maxX, x)
			minY = min(minY, series[1][i])
			maxY = max(maxY, series[1][i])
		}
	}
	minY = min(minY, 0)
	if maxY <= minY {
		maxY = minY + 1
	}
	if maxX <= 0 {
		maxX = 1
	}

	yLabelW := max(len(FormatAxis(maxY)), len(FormatAxis(minY))) + 1
	plotW := max(width-yLabelW-1, 10)

	grid := make([][]rune, height)
	kinds := make([][]byte, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", plotW))
		kinds[r] = make([]byte, plotW)
	}
	cell := func(x, y float64) (int, int) {
		c := int(math.Round(x / maxX * float64(plotW-1)))
		r := height - 1 - int(math.Round((y-minY)/(maxY-minY)*float64(height-1)))
		return min(max(c, 0), plotW-1), min(max(r, 0), height-1)
	}
	for i, x := range xs {
		c, r := cell(x, ys[i])
		grid[r][c] = '•'
		kinds[r][c] = 's'
	}
	for i, x := range lx {
		c, r := cell(x, ly[i])
		grid[r][c] = '━'
		kinds[r][c] = 'l'
	}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	dotStyle := lipgloss.NewStyle().Foreground(t.Blue).Background(t.Surface)
	lineStyle := lipgloss.NewStyle().Foreground(t.Savings()).Background(t.Surface).Bold(true)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for r := range grid {
		label := ""
		switch r {
		case 0:
			label = FormatAxis(maxY)
		case height - 1:
			label = FormatAxis(minY)
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, label)))
		b.WriteString(axisStyle.Render("│"))
		for c, ch := range grid[r] {
			switch kinds[r][c] {
			case 's':
				b.WriteString(dotStyle.Render(string(ch)))
			case 'l':
				b.WriteString(lineStyle.Render(string(ch)))
			default:
				b.WriteString(blankStyle.Render(" "))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(axisStyle.Render(strings.Repeat(" ", yLabelW) + "└" + strings.Repeat("─", plotW)))
	b.WriteString("\n")
	right := FormatAxis(maxX)
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s0%*s", yLabelW+1, "", plotW-1, right)))
	return b.String()
}

// chartTickStep picks a 1/2/5 tick interval giving about five ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// FormatAxis formats an axis value compactly: 1500 -> "1.5k".
func FormatAxis(v float64) string {
	if v < 0 {
		return "-" + FormatAxis(-v)
	}
	trim := func(scaled float64, suffix string) string {
		if scaled == math.Trunc(scaled) {
			return fmt.Sprintf("%.0f%s", scaled, suffix)
		}
		return fmt.Sprintf("%.1f%s", scaled, suffix)
	}
	switch {
	case v >= 1e6:
		return trim(v/1e6, "M")
	case v >= 1e3:
		return trim(v/1e3, "k")
	case v >= 1 || v == 0:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
