package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/predict"
	"github.com/breathsave/breathsave/internal/tui/components"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const goalStep = 50

// predictState is the savings calculator on the Predictions tab.
type predictState struct {
	goal    float64 // cigarettes the user plans to avoid
	editing bool
	input   textinput.Model
	err     error
}

func newPredictState(goal float64) predictState {
	if goal <= 0 {
		goal = 500
	}
	return predictState{goal: goal}
}

func (p *predictState) setGoal(v float64) {
	p.goal = max(v, 0)
	p.err = nil
}

func (a App) predictKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "e", "enter":
		ti := textinput.New()
		ti.Placeholder = "cigarettes to avoid"
		ti.CharLimit = 12
		ti.Width = 16
		ti.SetValue(cli.FormatFloat(a.predict.goal, 0))
		ti.Focus()
		a.predict.input = ti
		a.predict.editing = true
		return a, ti.Cursor.BlinkCmd(), true
	case "+", "=":
		a.predict.setGoal(a.predict.goal + goalStep)
		return a, nil, true
	case "-", "_":
		a.predict.setGoal(a.predict.goal - goalStep)
		return a, nil, true
	}
	return a, nil, false
}

func (a App) updatePredictInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v, err := strconv.ParseFloat(strings.TrimSpace(a.predict.input.Value()), 64)
		a.predict.editing = false
		if err != nil || v < 0 {
			a.predict.err = fmt.Errorf("enter a number of cigarettes, 0 or more")
			return a, nil
		}
		a.predict.setGoal(v)
		return a, nil
	case "esc":
		a.predict.editing = false
		return a, nil
	}
	var cmd tea.Cmd
	a.predict.input, cmd = a.predict.input.Update(msg)
	return a, cmd
}

func (a App) renderPredictionsTab(cw int) string {
	t := theme.Active
	an := a.analysis
	if an == nil || an.Model == nil {
		err := fmt.Errorf("no model")
		if an != nil && an.PredictErr != nil {
			err = an.PredictErr
		}
		return components.FocusCard("Savings model unavailable", err.Error(), cw)
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	moneyStyle := lipgloss.NewStyle().Foreground(t.Savings()).Background(t.Surface).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	m := an.Metrics
	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Per cigarette avoided", Value: cli.FormatMoney(m.Coefficient), Color: t.Savings()},
		{Label: "Intercept", Value: cli.FormatMoney(m.Intercept)},
		{Label: "R² (training data)", Value: cli.FormatFloat(m.R2, 3), Note: fitQuality(m.R2)},
	}, cw))
	b.WriteString("\n")

	// Calculator
	var calc strings.Builder
	calc.WriteString(labelStyle.Render("Cigarettes to avoid  "))
	if a.predict.editing {
		calc.WriteString(a.predict.input.View())
	} else {
		calc.WriteString(accentStyle.Render(cli.FormatNumber(int64(a.predict.goal))))
		calc.WriteString(dimStyle.Render("   [e] edit  [+/-] ±" + strconv.Itoa(goalStep)))
	}
	calc.WriteString("\n\n")

	if saved, err := an.Model.Predict(a.predict.goal); err != nil {
		calc.WriteString(warnStyle.Render(err.Error()))
	} else {
		calc.WriteString(labelStyle.Render("Predicted savings    "))
		calc.WriteString(moneyStyle.Render(cli.FormatMoney(saved)))
		calc.WriteString("\n")
		calc.WriteString(labelStyle.Render("Per cigarette        "))
		calc.WriteString(valueStyle.Render(cli.FormatMoney(predict.PerCigarette(saved, a.predict.goal))))
		calc.WriteString("\n")
		calc.WriteString(labelStyle.Render("Estimated timeline   "))
		calc.WriteString(valueStyle.Render(cli.FormatDays(predict.EstimateTimelineDays(saved))))
		calc.WriteString(dimStyle.Render(" at $10/day"))
	}
	if a.predict.err != nil {
		calc.WriteString("\n")
		calc.WriteString(warnStyle.Render(a.predict.err.Error()))
	}
	calc.WriteString("\n\n")
	calc.WriteString(dimStyle.Render(m.Interpretation))

	if mine := a.view.mine; mine != nil {
		calc.WriteString("\n\n")
		calc.WriteString(labelStyle.Render("Your progress        "))
		calc.WriteString(valueStyle.Render(fmt.Sprintf("%s avoided, %s saved",
			cli.FormatNumber(int64(mine.TotalCigsAvoided)), cli.FormatMoney(mine.MoneySaved))))
		if fitted, err := an.Model.Predict(mine.TotalCigsAvoided); err == nil {
			calc.WriteString("\n")
			calc.WriteString(labelStyle.Render("Model expects        "))
			calc.WriteString(valueStyle.Render(cli.FormatMoney(fitted)))
			calc.WriteString(dimStyle.Render(" (" + cli.FormatDelta(mine.MoneySaved, fitted) + ")"))
		}
	}

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Savings Calculator", calc.String(), cw))
		b.WriteString("\n")
		b.WriteString(a.renderRegressionPlot(cw))
		return b.String()
	}
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Savings Calculator", calc.String(), halves[0]),
		a.renderRegressionPlot(halves[1]),
	}))
	return b.String()
}

func (a App) renderRegressionPlot(w int) string {
	if a.view.lineErr != nil {
		return components.ContentCard("Regression Line", a.view.lineErr.Error(), w)
	}
	table := a.ds.Milestones
	xs, _ := table.Column(model.ColTotalCigsAvoided)
	ys, _ := table.Column(model.ColMoneySaved)

	// Only plot training points that fall inside the charted range.
	top := a.rangeMax()
	var px, py []float64
	for i, x := range xs {
		if x <= top {
			px = append(px, x)
			py = append(py, ys[i])
		}
	}
	lx := make([]float64, len(a.view.line))
	ly := make([]float64, len(a.view.line))
	for i, p := range a.view.line {
		lx[i], ly[i] = p.X, p.Y
	}

	inner := components.CardInnerWidth(w)
	title := fmt.Sprintf("Money saved vs cigarettes avoided (0–%s)", cli.FormatNumber(int64(top)))
	return components.ContentCard(title, components.Scatter(px, py, lx, ly, inner, 10), w)
}

func fitQuality(r2 float64) string {
	switch {
	case r2 >= 0.8:
		return "strong fit"
	case r2 >= 0.5:
		return "moderate fit"
	default:
		return "weak fit"
	}
}
