// Package tui provides the interactive Bubble Tea dashboard for breathsave.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/auth"
	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/predict"
	"github.com/breathsave/breathsave/internal/segment"
	"github.com/breathsave/breathsave/internal/source"
	"github.com/breathsave/breathsave/internal/store"
	"github.com/breathsave/breathsave/internal/tui/components"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// DataLoadedMsg is sent when the initial load finishes.
type DataLoadedMsg struct {
	Dataset  *pipeline.Dataset
	Analysis *pipeline.Analysis
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background reload finishes.
type RefreshDataMsg struct {
	Dataset  *pipeline.Dataset
	Analysis *pipeline.Analysis
	Err      error
	LoadTime time.Duration
}

// Options configures the dashboard.
type Options struct {
	DataDir      string
	UseCache     bool
	Segmentation segment.Config
	RangeMax     float64
	RangePoints  int
	DefaultGoal  float64 // cigarettes avoided, prefilled on the Predictions tab

	// Auth gates the dashboard behind a login form. Nil disables the gate.
	Auth *auth.Service

	// RefreshInterval reloads the data directory in the background; 0 disables.
	RefreshInterval time.Duration

	// NeedSetup shows the first-run wizard once data has loaded.
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	opts Options
	seg  *segment.Segmenter

	// Data
	ds       *pipeline.Dataset
	analysis *pipeline.Analysis
	loaded   bool
	loadErr  error
	loadTime time.Duration
	view     derived

	// Background refresh
	autoRefresh bool
	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	flash     string
	flashAt   time.Time

	// Login gate
	session   *auth.Session
	loginForm *huh.Form
	loginVals *loginValues
	loginErr  string

	// First-run wizard
	setupForm *huh.Form
	setupVals *setupValues

	// Per-tab state
	predict  predictState
	settings settingsState

	// Loading: progress and completion messages from the loader goroutine
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

// derived holds presentation data recomputed whenever the dataset or
// settings change.
type derived struct {
	topSavers  []model.Milestone
	topEarners []model.Milestone
	savedHist  []model.HistogramBin
	avoidHist  []model.HistogramBin
	channels   []model.TypeCount
	perDay     []model.DailyCount
	line       []model.Point
	lineErr    error
	mine       *model.Milestone // the signed-in user's row, if present
}

const (
	minTerminalWidth = 80
	compactWidth     = 110
	maxContentWidth  = 160
	minContentHeight = 5

	flashDuration = 3 * time.Second
)

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabAnalytics
	tabPredictions
	tabRewards
	tabSettings
)

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	if opts.RangePoints < 2 {
		opts.RangePoints = 100
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:        opts,
		seg:         segment.New(opts.Segmentation),
		autoRefresh: opts.RefreshInterval > 0,
		spinner:     sp,
		loadSub:     make(chan tea.Msg, 1),
		predict:     newPredictState(opts.DefaultGoal),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts, a.seg, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Session returns the signed-in session, if any.
func (a App) Session() (auth.Session, bool) {
	if a.session == nil {
		return auth.Session{}, false
	}
	return *a.session, true
}

func (a *App) setData(ds *pipeline.Dataset, an *pipeline.Analysis, took time.Duration) {
	a.ds = ds
	a.analysis = an
	a.loadTime = took
	a.lastRefresh = time.Now()
	a.recompute()
}

// reanalyze reruns the engines over the current dataset, e.g. after the
// segmentation settings change.
func (a *App) reanalyze() {
	if a.ds == nil {
		return
	}
	a.analysis = pipeline.Analyze(a.ds, a.seg)
	a.recompute()
}

func (a *App) recompute() {
	if a.ds == nil {
		a.view = derived{}
		return
	}
	table := a.ds.Milestones
	var v derived
	v.topSavers, _ = pipeline.TopN(table, pipeline.TopSavers, model.ColMoneySaved)
	v.topEarners, _ = pipeline.TopN(table, pipeline.TopEarners, model.ColPoints)
	if saved, err := table.Column(model.ColMoneySaved); err == nil {
		v.savedHist = pipeline.Histogram(saved, pipeline.HistogramBins)
	}
	if avoided, err := table.Column(model.ColTotalCigsAvoided); err == nil {
		v.avoidHist = pipeline.Histogram(avoided, pipeline.HistogramBins)
	}
	v.channels = pipeline.NotificationChannels(a.ds.Notifications)
	v.perDay = pipeline.NotificationsByDay(a.ds.Notifications)

	if a.analysis != nil && a.analysis.Model != nil {
		v.line, v.lineErr = a.analysis.Model.Points(a.rangeMax(), a.opts.RangePoints)
	}
	if a.session != nil {
		for _, row := range pipeline.FilterByUser(table, a.session.Username).Rows {
			if strings.EqualFold(row.UserID, a.session.Username) {
				v.mine = &row
				break
			}
		}
	}
	a.view = v
}

// rangeMax is the charted cigarettes-avoided range: the configured value,
// or the data maximum when none is set.
func (a App) rangeMax() float64 {
	if a.analysis != nil && a.analysis.Model != nil {
		return a.analysis.Model.RangeMax(a.opts.RangeMax)
	}
	if a.opts.RangeMax > 0 {
		return a.opts.RangeMax
	}
	return predict.DefaultRangeMax
}

func (a *App) setFlash(msg string) {
	a.flash = msg
	a.flashAt = time.Now()
}

// gated reports whether the login form blocks the dashboard.
func (a App) gated() bool {
	return a.opts.Auth != nil && a.session == nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		for _, f := range []*huh.Form{a.setupForm, a.loginForm, a.settings.pwForm} {
			a.sizeForm(f)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.activeForm() != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.setData(msg.Dataset, msg.Analysis, msg.LoadTime)
		}
		return a.afterLoad()

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Err != nil {
			// Keep showing the last good dataset.
			a.loadErr = msg.Err
			a.setFlash("reload failed")
			return a, nil
		}
		a.loadErr = nil
		a.setData(msg.Dataset, msg.Analysis, msg.LoadTime)
		return a, nil

	case authResultMsg:
		return a.handleAuthResult(msg)

	case passwordChangedMsg:
		a.settings.pwForm = nil
		a.settings.pwVals = nil
		a.settings.err = msg.err
		if msg.err == nil {
			a.setFlash("password updated")
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.flash != "" && time.Since(a.flashAt) >= flashDuration {
			a.flash = ""
		}
		if a.loaded && a.autoRefresh && !a.refreshing &&
			time.Since(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts, a.seg))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward everything else (cursor blinks and the like) to an open form.
	if a.activeForm() != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

// afterLoad opens the setup wizard or the login form once data is in.
func (a App) afterLoad() (tea.Model, tea.Cmd) {
	if a.opts.NeedSetup && a.setupVals == nil {
		a.setupVals = newSetupValues(a.opts)
		a.setupForm = newSetupForm(a.setupVals, a.usersLoaded(), a.opts.DataDir)
		a.sizeForm(a.setupForm)
		return a, a.setupForm.Init()
	}
	if a.gated() && a.loginForm == nil {
		return a.openLogin("")
	}
	return a, nil
}

func (a App) usersLoaded() int {
	if a.ds == nil {
		return 0
	}
	return a.ds.Milestones.Len()
}

func (a App) sizeForm(f *huh.Form) {
	if f != nil && a.width > 0 {
		f.WithWidth(min(a.width-8, 64)).WithHeight(a.height)
	}
}

// activeForm returns the huh form that currently owns the keyboard.
func (a App) activeForm() *huh.Form {
	switch {
	case a.setupForm != nil:
		return a.setupForm
	case a.loginForm != nil:
		return a.loginForm
	case a.settings.pwForm != nil:
		return a.settings.pwForm
	}
	return nil
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch {
	case a.setupForm != nil:
		return a.updateSetupForm(msg)
	case a.loginForm != nil:
		return a.updateLoginForm(msg)
	case a.settings.pwForm != nil:
		return a.updatePasswordForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if a.activeForm() != nil {
		return a.updateForm(msg)
	}

	// Text inputs own the keyboard while editing.
	if a.activeTab == tabPredictions && a.predict.editing {
		return a.updatePredictInput(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}
	if key == "?" {
		a.showHelp = true
		return a, nil
	}

	switch a.activeTab {
	case tabPredictions:
		if m, cmd, ok := a.predictKey(key); ok {
			return m, cmd
		}
	case tabSettings:
		if m, cmd, ok := a.settingsKey(key); ok {
			return m, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.opts, a.seg)
		}
		return a, nil
	case "R":
		if a.opts.RefreshInterval > 0 {
			a.autoRefresh = !a.autoRefresh
		}
		return a, nil
	case "L":
		if a.opts.Auth != nil && a.session != nil {
			a.session = nil
			a.recompute()
			return a.openLogin("")
		}
		return a, nil
	case "left", "h":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "l", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if r := []rune(key); len(r) == 1 {
		if idx := components.TabIdxByKey(r[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if f := a.activeForm(); f != nil {
		return a.viewForm(f)
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  breathsave needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	h := max(a.height, 5)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	count := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logo.Render("◈ breathsave"))
	b.WriteString(muted.Render(" · community analytics"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	if a.progressMax > 0 {
		barW := min(max(a.width-40, 20), 40)
		b.WriteString(muted.Render(" Reading data files\n\n"))
		b.WriteString(components.ProgressBar(float64(a.progress)/float64(a.progressMax), barW))
		b.WriteString("\n")
		b.WriteString(count.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(muted.Render(" / "))
		b.WriteString(count.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(muted.Render(" Looking for data in " + a.opts.DataDir))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewForm(f *huh.Form) string {
	t := theme.Active
	body := f.View()
	var note string
	switch f {
	case a.loginForm:
		note = a.loginErr
	case a.settings.pwForm:
		if a.settings.err != nil {
			note = a.settings.err.Error()
		}
	}
	if note != "" {
		errStyle := lipgloss.NewStyle().Foreground(t.Red).Bold(true)
		body = errStyle.Render(note) + "\n\n" + body
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2).
		Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	section := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	desc := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	groups := []struct {
		name     string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o a p w x", "Jump to tab"},
			{"← → tab", "Previous / Next tab"},
			{"j k", "Move through settings"},
		}},
		{"Actions", [][2]string{
			{"e Enter", "Edit goal or setting"},
			{"+ -", "Adjust prediction goal"},
			{"r", "Reload data"},
			{"R", "Toggle auto-refresh"},
			{"L", "Sign out"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(title.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(section.Render(g.name))
		b.WriteString("\n")
		for _, kb := range g.bindings {
			fmt.Fprintf(&b, "  %s  %s\n", keyStyle.Render(fmt.Sprintf("%-10s", kb[0])), desc.Render(kb[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w, h := a.width, a.height
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)

	status := components.Status{
		Users:       a.usersLoaded(),
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Flash:       a.flash,
	}
	if a.session != nil {
		status.User = a.session.Username
	}
	if !a.lastRefresh.IsZero() {
		status.LoadedAgo = formatAgo(time.Since(a.lastRefresh))
	}
	statusBar := components.RenderStatusBar(w, status)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	if a.ds == nil {
		content = a.renderLoadError(cw)
	} else {
		switch a.activeTab {
		case tabOverview:
			content = a.renderOverviewTab(cw)
		case tabAnalytics:
			content = a.renderAnalyticsTab(cw)
		case tabPredictions:
			content = a.renderPredictionsTab(cw)
		case tabRewards:
			content = a.renderRewardsTab(cw)
		case tabSettings:
			content = a.renderSettingsTab(cw)
		}
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	out := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, out,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderLoadError(cw int) string {
	msg := "no data loaded"
	if a.loadErr != nil {
		msg = a.loadErr.Error()
	}
	hint := "Press r to retry or q to quit."
	if errors.Is(a.loadErr, pipeline.ErrDataNotFound) {
		hint = fmt.Sprintf("Put %s in %s, then press r.", source.MilestonesFile, a.opts.DataDir)
	}
	return components.FocusCard("Could not load data", msg+"\n\n"+hint, cw)
}

// ─── Loading ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataset reads the data directory, through the SQLite cache when enabled.
// A cache that cannot be opened falls back to a plain load.
func loadDataset(opts Options, progressFn pipeline.ProgressFunc) (*pipeline.Dataset, error) {
	if opts.UseCache {
		if cache, err := store.Open(pipeline.CachePath()); err == nil {
			defer cache.Close()
			return pipeline.LoadWithCache(opts.DataDir, cache, progressFn)
		}
	}
	return pipeline.Load(opts.DataDir, progressFn)
}

// loadDataCmd starts loading in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts Options, seg *segment.Segmenter, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send: a dropped update is superseded by the next one.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			ds, err := loadDataset(opts, progressFn)
			if err != nil {
				sub <- DataLoadedMsg{Err: err, LoadTime: time.Since(start)}
				return
			}
			sub <- DataLoadedMsg{
				Dataset:  ds,
				Analysis: pipeline.Analyze(ds, seg),
				LoadTime: time.Since(start),
			}
		}()
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads without progress reporting.
func refreshDataCmd(opts Options, seg *segment.Segmenter) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ds, err := loadDataset(opts, nil)
		if err != nil {
			return RefreshDataMsg{Err: err, LoadTime: time.Since(start)}
		}
		return RefreshDataMsg{
			Dataset:  ds,
			Analysis: pipeline.Analyze(ds, seg),
			LoadTime: time.Since(start),
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

// tabAtX returns the tab index under column x, or -1. It walks the same
// widths RenderTabBar draws.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		w := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1 // separator
	}
	return -1
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
