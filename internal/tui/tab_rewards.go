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

func (a App) renderRewardsTab(cw int) string {
	t := theme.Active
	rs := a.analysis.Rewards
	var b strings.Builder

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total Points", Value: cli.FormatNumber(rs.TotalPoints), Color: t.Points()},
		{Label: "Avg Points per User", Value: cli.FormatFloat(rs.AvgPoints, 1)},
		{Label: "Redeemed", Value: cli.FormatNumber(int64(rs.Redeemed)),
			Note: fmt.Sprintf("of %s rewards", cli.FormatNumber(int64(rs.TotalRewards)))},
		{Label: "Pending", Value: cli.FormatNumber(int64(rs.Pending)), Color: t.Orange},
	}, cw))
	b.WriteString("\n")

	types := renderCounts(rs.TypeCounts, rs.TotalRewards, "No rewards issued")
	statuses := renderCounts(rs.StatusCounts, rs.TotalRewards, "No rewards issued")
	earners := a.renderTopEarners()

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Reward Types", types, cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Redemption Status", statuses, cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard(fmt.Sprintf("Top %d Earners", len(a.view.topEarners)), earners, cw))
		return b.String()
	}

	halves := components.LayoutRow(cw, 2)
	left := components.ContentCard("Reward Types", types, halves[0]) + "\n" +
		components.ContentCard("Redemption Status", statuses, halves[0])
	b.WriteString(components.CardRow([]string{
		left,
		components.ContentCard(fmt.Sprintf("Top %d Earners", len(a.view.topEarners)), earners, halves[1]),
	}))
	return b.String()
}

func renderCounts(counts []model.TypeCount, total int, empty string) string {
	t := theme.Active
	if len(counts) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(empty)
	}
	lines := make([]string, len(counts))
	for i, c := range counts {
		lines[i] = components.ShareBar(c.Label, c.Count, total, t.Segment(i), 14, 20)
	}
	return strings.Join(lines, "\n")
}

func (a App) renderTopEarners() string {
	t := theme.Active
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rankStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	pointsStyle := lipgloss.NewStyle().Foreground(t.Points()).Background(t.Surface)

	if len(a.view.topEarners) == 0 {
		return rankStyle.Render("No users yet")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%3s  %-16s %8s %6s", "#", "User", "Points", "Days")))
	for i, m := range a.view.topEarners {
		b.WriteString("\n")
		b.WriteString(rankStyle.Render(fmt.Sprintf("%3d  ", i+1)))
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-16s", truncStr(m.UserID, 16))))
		b.WriteString(pointsStyle.Render(fmt.Sprintf(" %8s", cli.FormatNumber(int64(m.Points)))))
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %6d", m.TotalDays)))
	}
	return b.String()
}
