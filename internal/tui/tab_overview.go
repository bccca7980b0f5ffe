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

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	ov := a.analysis.Overview
	var b strings.Builder

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total Users", Value: cli.FormatNumber(int64(ov.TotalUsers))},
		{Label: "Avg Cigarettes Avoided", Value: cli.FormatFloat(ov.AvgCigsAvoided, 1),
			Note: cli.FormatCount(int64(ov.TotalCigsAvoided)) + " total"},
		{Label: "Total Money Saved", Value: cli.FormatMoney(ov.TotalSavings), Color: t.Savings()},
		{Label: "Avg Days Smoke-Free", Value: cli.FormatFloat(ov.AvgDays, 1)},
	}, cw))
	b.WriteString("\n")

	chartH := 10
	if a.isCompactLayout() {
		chartH = 7
	}
	saved := histogramCard("Distribution of Money Saved", a.view.savedHist, "$", t.Savings())
	avoided := histogramCard("Distribution of Cigarettes Avoided", a.view.avoidHist, "", t.Accent)
	if a.isCompactLayout() {
		for _, card := range []func(int, int) string{saved, avoided} {
			if out := card(cw, chartH); out != "" {
				b.WriteString(out)
				b.WriteString("\n")
			}
		}
	} else if len(a.view.savedHist) > 0 {
		halves := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{saved(halves[0], chartH), avoided(halves[1], chartH)}))
		b.WriteString("\n")
	}

	savers := a.renderTopSavers()
	notes := a.renderNotifications()
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard(fmt.Sprintf("Top %d Savers", len(a.view.topSavers)), savers, cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Notifications", notes, cw))
		return b.String()
	}
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard(fmt.Sprintf("Top %d Savers", len(a.view.topSavers)), savers, halves[0]),
		components.ContentCard("Notifications", notes, halves[1]),
	}))
	return b.String()
}

// histogramCard returns a renderer for a users-per-bin bar chart card, or
// one that renders nothing when there are no bins.
func histogramCard(title string, bins []model.HistogramBin, prefix string, color lipgloss.Color) func(w, h int) string {
	return func(w, h int) string {
		if len(bins) == 0 {
			return ""
		}
		vals := make([]float64, len(bins))
		labels := make([]string, len(bins))
		for i, bin := range bins {
			vals[i] = float64(bin.Count)
			labels[i] = prefix + components.FormatAxis(bin.Lo)
		}
		return components.ContentCard(title+" (users per bin)",
			components.BarChart(vals, labels, color, components.CardInnerWidth(w), h), w)
	}
}

func (a App) renderTopSavers() string {
	t := theme.Active
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rankStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	meStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	moneyStyle := lipgloss.NewStyle().Foreground(t.Savings()).Background(t.Surface)

	if len(a.view.topSavers) == 0 {
		return rankStyle.Render("No users yet")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%3s  %-14s %9s %11s %6s", "#", "User", "Avoided", "Saved", "Days")))
	b.WriteString("\n")
	for i, m := range a.view.topSavers {
		user := rowStyle
		if a.session != nil && strings.EqualFold(m.UserID, a.session.Username) {
			user = meStyle
		}
		b.WriteString(rankStyle.Render(fmt.Sprintf("%3d  ", i+1)))
		b.WriteString(user.Render(fmt.Sprintf("%-14s", truncStr(m.UserID, 14))))
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %9s", cli.FormatNumber(int64(m.TotalCigsAvoided)))))
		b.WriteString(moneyStyle.Render(fmt.Sprintf(" %11s", cli.FormatMoney(m.MoneySaved))))
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %6d", m.TotalDays)))
		if i < len(a.view.topSavers)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderNotifications() string {
	t := theme.Active
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.ds.Notifications) == 0 {
		return dimStyle.Render("No notifications scheduled")
	}

	var b strings.Builder
	total := len(a.ds.Notifications)
	for i, c := range a.view.channels {
		b.WriteString(components.ShareBar(c.Label, c.Count, total, t.Segment(i), 10, 18))
		b.WriteString("\n")
	}

	if days := a.view.perDay; len(days) > 1 {
		b.WriteString("\n")
		series := chronological(days)
		b.WriteString(labelStyle.Render(fmt.Sprintf("Per day, %s to %s",
			days[len(series)-1].Date.Format("Jan 2"), days[0].Date.Format("Jan 2"))))
		b.WriteString("\n")
		b.WriteString(components.Sparkline(series, t.Accent))
	}
	return strings.TrimRight(b.String(), "\n")
}

// chronological returns daily counts oldest first, at most the last 60 days.
func chronological(days []model.DailyCount) []float64 {
	n := min(len(days), 60)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = float64(days[i].Count)
	}
	return out
}
