package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/breathsave/breathsave/internal/auth"
	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/segment"
	"github.com/breathsave/breathsave/internal/tui/components"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldTheme = iota
	settingsFieldClusters
	settingsFieldSeed
	settingsFieldRank
	settingsFieldRangeMax
	settingsFieldGoal
	settingsFieldPassword // only offered when sign-in is enabled
)

type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	err     error

	pwForm *huh.Form
	pwVals *passwordValues
}

type passwordValues struct {
	current string
	next    string
	confirm string
}

type passwordChangedMsg struct{ err error }

func (a App) settingsFieldCount() int {
	if a.opts.Auth != nil && a.session != nil {
		return settingsFieldPassword + 1
	}
	return settingsFieldPassword
}

// settingsKey handles navigation on the Settings tab. ok is false for keys
// the tab does not use.
func (a App) settingsKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		if a.settings.cursor < a.settingsFieldCount()-1 {
			a.settings.cursor++
		}
		return a, nil, true
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
		return a, nil, true
	case "enter", "e", " ":
		m, cmd := a.settingsActivate()
		return m, cmd, true
	}
	return a, nil, false
}

// settingsActivate cycles choice fields in place and opens an editor for
// the rest.
func (a App) settingsActivate() (tea.Model, tea.Cmd) {
	a.settings.err = nil
	segCfg := a.seg.Config()

	switch a.settings.cursor {
	case settingsFieldTheme:
		names := theme.Names()
		next := names[0]
		for i, n := range names {
			if n == theme.Active.Name {
				next = names[(i+1)%len(names)]
			}
		}
		theme.SetActive(next)
		a.persist(func(c *config.Config) { c.Appearance.Theme = next })
		return a, nil

	case settingsFieldRank:
		segCfg.RankBySavings = !segCfg.RankBySavings
		a.setSegmentation(segCfg)
		a.persist(func(c *config.Config) { c.Segmentation.RankBySavings = segCfg.RankBySavings })
		return a, nil

	case settingsFieldPassword:
		a.settings.pwVals = &passwordValues{}
		a.settings.pwForm = newPasswordForm(a.settings.pwVals)
		a.sizeForm(a.settings.pwForm)
		return a, a.settings.pwForm.Init()
	}

	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 20
	switch a.settings.cursor {
	case settingsFieldClusters:
		ti.Placeholder = "3"
		ti.SetValue(strconv.Itoa(segCfg.Clusters))
	case settingsFieldSeed:
		ti.Placeholder = "42"
		ti.SetValue(strconv.FormatUint(segCfg.Seed, 10))
	case settingsFieldRangeMax:
		ti.Placeholder = "2500"
		ti.SetValue(cli.FormatFloat(a.opts.RangeMax, 0))
	case settingsFieldGoal:
		ti.Placeholder = "500"
		ti.SetValue(cli.FormatFloat(a.predict.goal, 0))
	}
	ti.Focus()
	a.settings.input = ti
	a.settings.editing = true
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settings.err = a.settingsSave(strings.TrimSpace(a.settings.input.Value()))
		a.settings.editing = false
		if a.settings.err == nil {
			a.setFlash("saved")
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates and applies the edited value.
func (a *App) settingsSave(val string) error {
	segCfg := a.seg.Config()

	switch a.settings.cursor {
	case settingsFieldClusters:
		k, err := strconv.Atoi(val)
		if err != nil || k < 1 {
			return fmt.Errorf("clusters must be a positive whole number")
		}
		segCfg.Clusters = k
		a.setSegmentation(segCfg)
		a.persist(func(c *config.Config) { c.Segmentation.Clusters = k })
	case settingsFieldSeed:
		seed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be a non-negative whole number")
		}
		segCfg.Seed = seed
		a.setSegmentation(segCfg)
		a.persist(func(c *config.Config) { c.Segmentation.Seed = seed })
	case settingsFieldRangeMax:
		v, err := strconv.ParseFloat(val, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("range must be zero (data maximum) or a positive number")
		}
		a.opts.RangeMax = v
		a.recompute()
		a.persist(func(c *config.Config) { c.Predictions.RangeMax = v })
	case settingsFieldGoal:
		v, err := strconv.ParseFloat(val, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("goal must be zero or more cigarettes")
		}
		a.predict.setGoal(v)
		a.persist(func(c *config.Config) { c.Predictions.DefaultGoal = v })
	}
	return a.settings.err
}

func (a *App) setSegmentation(cfg segment.Config) {
	a.opts.Segmentation = cfg
	a.seg = segment.New(cfg)
	a.reanalyze()
}

// persist applies fn to the on-disk config. A failed save leaves the change
// in effect for this session and is reported on the tab.
func (a *App) persist(fn func(*config.Config)) {
	cfg, err := config.Load()
	if err != nil {
		a.settings.err = err
		return
	}
	fn(&cfg)
	a.settings.err = config.Save(cfg)
}

func newPasswordForm(v *passwordValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&v.current),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&v.next),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&v.confirm),
		).Title("Change password"),
	).WithShowHelp(true)
}

func (a App) updatePasswordForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.settings.pwForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.settings.pwForm = f
	}

	switch a.settings.pwForm.State {
	case huh.StateCompleted:
		v := *a.settings.pwVals
		return a, passwordCmd(a.opts.Auth, a.session.Username, v)
	case huh.StateAborted:
		a.settings.pwForm = nil
		a.settings.pwVals = nil
		return a, nil
	}
	return a, cmd
}

func passwordCmd(svc *auth.Service, username string, v passwordValues) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		return passwordChangedMsg{err: svc.UpdatePassword(ctx, username, v.current, v.next, v.confirm)}
	}
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	segCfg := a.seg.Config()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	fields := [][2]string{
		{"Theme", theme.Active.Name},
		{"Clusters", strconv.Itoa(segCfg.Clusters)},
		{"Seed", strconv.FormatUint(segCfg.Seed, 10)},
		{"Rank by savings", strconv.FormatBool(segCfg.RankBySavings)},
		{"Chart range", rangeLabel(a.opts.RangeMax, a.rangeMax())},
		{"Default goal", cli.FormatFloat(a.predict.goal, 0) + " cigarettes"},
		{"Password", "change…"},
	}[:a.settingsFieldCount()]

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		switch {
		case a.settings.editing && i == a.settings.cursor:
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f[0])))
			form.WriteString(a.settings.input.View())
		case i == a.settings.cursor:
			line := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":")) +
				selectedStyle.Render(f[1])
			form.WriteString(line)
			if pad := innerW - lipgloss.Width(line); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		default:
			form.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s ", f[0]+":")))
			form.WriteString(valueStyle.Render(f[1]))
		}
		form.WriteString("\n")
	}
	if a.settings.err != nil {
		form.WriteString("\n")
		form.WriteString(warnStyle.Render(a.settings.err.Error()))
		form.WriteString("\n")
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] move  [Enter] change  [Esc] cancel"))

	var info strings.Builder
	row := func(label, value string) {
		info.WriteString(labelStyle.Render(fmt.Sprintf("%-17s", label)))
		info.WriteString(valueStyle.Render(value))
		info.WriteString("\n")
	}
	row("Data directory", a.opts.DataDir)
	row("Users loaded", cli.FormatNumber(int64(a.usersLoaded())))
	if a.ds != nil {
		row("Files parsed", fmt.Sprintf("%d of %d (%d from cache)",
			a.ds.Stats.ParsedFiles, a.ds.Stats.TotalFiles, a.ds.Stats.CacheHits))
		if len(a.ds.Stats.MissingFiles) > 0 {
			row("Missing", strings.Join(a.ds.Stats.MissingFiles, ", "))
		}
	}
	row("Load time", fmt.Sprintf("%.2fs", a.loadTime.Seconds()))
	row("Config file", config.ConfigPath())
	if a.session != nil {
		row("Signed in", a.session.Username+" since "+a.session.LoginTime.Format("15:04"))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Session", strings.TrimRight(info.String(), "\n"), cw))
	return b.String()
}

func rangeLabel(configured, effective float64) string {
	if configured > 0 {
		return cli.FormatFloat(configured, 0) + " cigarettes"
	}
	return "data maximum (" + cli.FormatFloat(effective, 0) + " cigarettes)"
}
