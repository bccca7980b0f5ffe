package tui

import (
	"fmt"
	"strings"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/tui/components"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderAnalyticsTab(cw int) string {
	an := a.analysis
	var b strings.Builder

	if an.SegmentErr != nil {
		b.WriteString(components.FocusCard("Segmentation unavailable", an.SegmentErr.Error(), cw))
	} else {
		b.WriteString(a.renderClusters(cw))
	}
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Correlations", renderCorrelationMatrix(an.Correlations), cw))
	return b.String()
}

func (a App) renderClusters(cw int) string {
	t := theme.Active
	clusters := a.analysis.Clusters
	cfg := a.seg.Config()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	total := 0
	for _, c := range clusters {
		total += c.Users
	}

	// One card per segment, wrapping onto a new row after three.
	perRow := min(len(clusters), 3)
	if a.isCompactLayout() {
		perRow = min(len(clusters), 2)
	}
	var rows []string
	for start := 0; start < len(clusters); start += perRow {
		end := min(start+perRow, len(clusters))
		widths := components.LayoutRow(cw, end-start)
		cards := make([]string, 0, end-start)
		for i, c := range clusters[start:end] {
			cards = append(cards, clusterCard(c, widths[i]))
		}
		rows = append(rows, components.CardRow(cards))
	}

	var share strings.Builder
	for _, c := range clusters {
		share.WriteString(components.ShareBar(c.Name, c.Users, total, t.Segment(c.ID), 18, 30))
		share.WriteString("\n")
	}
	share.WriteString("\n")
	order := "cluster order"
	if cfg.RankBySavings {
		order = "ranked by average savings"
	}
	share.WriteString(labelStyle.Render("k "))
	share.WriteString(valueStyle.Render(fmt.Sprintf("%d", cfg.Clusters)))
	share.WriteString(labelStyle.Render("  seed "))
	share.WriteString(valueStyle.Render(fmt.Sprintf("%d", cfg.Seed)))
	share.WriteString(dimStyle.Render("  names in " + order + "; change on the Settings tab"))

	rows = append(rows, components.ContentCard("Users per Segment", share.String(), cw))
	return strings.Join(rows, "\n")
}

func clusterCard(c model.ClusterStats, w int) string {
	t := theme.Active
	color := t.Segment(c.ID)

	titleStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	moneyStyle := lipgloss.NewStyle().Foreground(t.Savings()).Background(t.Surface)
	smokedStyle := lipgloss.NewStyle().Foreground(t.Smoked()).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Name))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Users         "))
	b.WriteString(valueStyle.Render(cli.FormatNumber(int64(c.Users))))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Avg saved     "))
	b.WriteString(moneyStyle.Render(cli.FormatMoney(c.AvgSavings)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Avg avoided   "))
	b.WriteString(valueStyle.Render(cli.FormatFloat(c.AvgCigsAvoided, 1)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Avg smoked    "))
	b.WriteString(smokedStyle.Render(cli.FormatFloat(c.AvgCigsSmoked, 1)))

	return components.ContentCard(fmt.Sprintf("Segment %d", c.ID), b.String(), w)
}

func renderCorrelationMatrix(m model.CorrelationMatrix) string {
	t := theme.Active
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(m.Labels) == 0 {
		return dimStyle.Render("Not enough users to correlate")
	}

	const labelW, cellW = 20, 10
	cell := func(r float64) string {
		s := fmt.Sprintf("%+.2f", r)
		var c lipgloss.Color
		switch {
		case r >= 0.5:
			c = t.Green
		case r <= -0.5:
			c = t.Red
		case r >= 0.2 || r <= -0.2:
			c = t.TextPrimary
		default:
			c = t.TextDim
		}
		return lipgloss.NewStyle().Foreground(c).Background(t.Surface).Render(fmt.Sprintf("%*s", cellW, s))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.Repeat(" ", labelW)))
	for _, l := range m.Labels {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%*s", cellW, truncStr(shortColumn(l), cellW-1))))
	}
	for i, row := range m.Values {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", labelW, truncStr(m.Labels[i], labelW-1))))
		for _, r := range row {
			b.WriteString(cell(r))
		}
	}
	return b.String()
}

// shortColumn abbreviates a milestone column name for the matrix header.
func shortColumn(col string) string {
	switch col {
	case model.ColTotalCigsAvoided:
		return "avoided"
	case model.ColMoneySaved:
		return "saved"
	case model.ColTotalCigsSmoked:
		return "smoked"
	case model.ColTotalDays:
		return "days"
	}
	return col
}
