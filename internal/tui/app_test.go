package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/breathsave/breathsave/internal/auth"
	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/segment"

	tea "github.com/charmbracelet/bubbletea"
)

type memStore map[string]string

func (m memStore) Lookup(_ context.Context, u string) (string, bool, error) {
	h, ok := m[u]
	return h, ok, nil
}

func (m memStore) Store(_ context.Context, u, h string) error {
	m[u] = h
	return nil
}

func testDataset() *pipeline.Dataset {
	rows := []model.Milestone{
		{UserID: "u1", TotalCigsAvoided: 100, MoneySaved: 50, TotalCigsSmoked: 300, TotalDays: 10, Points: 40},
		{UserID: "u2", TotalCigsAvoided: 120, MoneySaved: 61, TotalCigsSmoked: 280, TotalDays: 12, Points: 45},
		{UserID: "u3", TotalCigsAvoided: 140, MoneySaved: 69, TotalCigsSmoked: 260, TotalDays: 14, Points: 50},
		{UserID: "u4", TotalCigsAvoided: 900, MoneySaved: 452, TotalCigsSmoked: 90, TotalDays: 80, Points: 300},
		{UserID: "u5", TotalCigsAvoided: 950, MoneySaved: 470, TotalCigsSmoked: 80, TotalDays: 85, Points: 320},
		{UserID: "u6", TotalCigsAvoided: 1000, MoneySaved: 503, TotalCigsSmoked: 70, TotalDays: 90, Points: 340},
		{UserID: "u7", TotalCigsAvoided: 2000, MoneySaved: 1001, TotalCigsSmoked: 10, TotalDays: 200, Points: 800},
		{UserID: "u8", TotalCigsAvoided: 2100, MoneySaved: 1049, TotalCigsSmoked: 5, TotalDays: 210, Points: 850},
		{UserID: "u9", TotalCigsAvoided: 2200, MoneySaved: 1102, TotalCigsSmoked: 0, TotalDays: 220, Points: 900},
	}
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	return &pipeline.Dataset{
		Dir:        "testdata",
		Milestones: model.NewMilestoneTable(rows),
		Rewards: []model.Reward{
			{UserID: "u1", RewardType: "badge", RedemptionStatus: model.StatusRedeemed, Points: 10},
			{UserID: "u4", RewardType: "voucher", RedemptionStatus: model.StatusPending, Points: 50},
			{UserID: "u7", RewardType: "badge", RedemptionStatus: model.StatusRedeemed, Points: 10},
		},
		Notifications: []model.Notification{
			{UserID: "u1", ScheduledAt: day, Channel: "push"},
			{UserID: "u2", ScheduledAt: day.AddDate(0, 0, 1), Channel: "email"},
			{UserID: "u3", ScheduledAt: day.AddDate(0, 0, 1), Channel: "push"},
		},
		LoadedAt: day,
	}
}

func loadedApp(t *testing.T, opts Options) App {
	t.Helper()
	ds := testDataset()
	a := NewApp(opts)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m, _ = m.(App).Update(DataLoadedMsg{
		Dataset:  ds,
		Analysis: pipeline.Analyze(ds, segment.New(opts.Segmentation)),
	})
	return m.(App)
}

func defaultOpts() Options {
	return Options{DataDir: "testdata", Segmentation: segment.DefaultConfig()}
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestDataLoadedPopulatesView(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	if !a.loaded || a.ds == nil || a.analysis == nil {
		t.Fatal("dataset not applied")
	}
	if got := len(a.view.topSavers); got != 9 {
		t.Errorf("topSavers = %d, want 9", got)
	}
	if a.view.topSavers[0].UserID != "u9" {
		t.Errorf("top saver = %s, want u9", a.view.topSavers[0].UserID)
	}
	if len(a.view.savedHist) != pipeline.HistogramBins || len(a.view.avoidHist) != pipeline.HistogramBins {
		t.Errorf("histogram bins = %d/%d, want %d", len(a.view.savedHist), len(a.view.avoidHist), pipeline.HistogramBins)
	}
	if len(a.view.channels) != 2 || a.view.channels[0].Label != "push" {
		t.Errorf("channels = %+v", a.view.channels)
	}
	if len(a.view.line) != 100 {
		t.Errorf("regression line points = %d, want 100", len(a.view.line))
	}
	if a.view.mine != nil {
		t.Error("mine set without a session")
	}
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	tests := []struct {
		key  string
		want int
	}{
		{"a", tabAnalytics},
		{"w", tabRewards},
		{"x", tabSettings},
		{"o", tabOverview},
		{"p", tabPredictions},
	}
	for _, tt := range tests {
		a = press(t, a, tt.key)
		if a.activeTab != tt.want {
			t.Errorf("key %q: tab = %d, want %d", tt.key, a.activeTab, tt.want)
		}
	}
}

func TestTabArrowsWrap(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	a = press(t, a, "left")
	if a.activeTab != tabSettings {
		t.Errorf("left from first tab = %d, want %d", a.activeTab, tabSettings)
	}
	a = press(t, a, "right")
	if a.activeTab != tabOverview {
		t.Errorf("right from last tab = %d, want %d", a.activeTab, tabOverview)
	}
}

func TestPredictGoalStep(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	a = press(t, a, "p", "+")
	if a.predict.goal != 550 {
		t.Fatalf("goal = %v, want 550", a.predict.goal)
	}
	a = press(t, a, "-", "-")
	if a.predict.goal != 450 {
		t.Fatalf("goal = %v, want 450", a.predict.goal)
	}
	for range 20 {
		a = press(t, a, "-")
	}
	if a.predict.goal != 0 {
		t.Errorf("goal = %v, want clamped to 0", a.predict.goal)
	}
}

func TestPredictGoalEdit(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	a = press(t, a, "p", "e")
	if !a.predict.editing {
		t.Fatal("e did not open the goal editor")
	}
	a.predict.input.SetValue("1200")
	a = press(t, a, "enter")
	if a.predict.editing || a.predict.goal != 1200 {
		t.Fatalf("goal = %v editing = %v, want 1200 and closed", a.predict.goal, a.predict.editing)
	}

	a = press(t, a, "e")
	a.predict.input.SetValue("lots")
	a = press(t, a, "enter")
	if a.predict.err == nil {
		t.Error("non-numeric goal accepted")
	}
	if a.predict.goal != 1200 {
		t.Errorf("goal = %v, want unchanged 1200", a.predict.goal)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	want := map[int]string{
		tabOverview:    "Total Users",
		tabAnalytics:   "Segment 0",
		tabPredictions: "Per cigarette avoided",
		tabRewards:     "Total Points",
		tabSettings:    "Clusters",
	}
	for tab, s := range want {
		a.activeTab = tab
		if out := a.View(); !strings.Contains(out, s) {
			t.Errorf("tab %d: view missing %q", tab, s)
		}
	}
}

func TestOverviewShowsBothHistograms(t *testing.T) {
	for _, width := range []int{140, 100} {
		a := loadedApp(t, defaultOpts())
		m, _ := a.Update(tea.WindowSizeMsg{Width: width, Height: 80})
		a = m.(App)
		out := a.View()
		for _, title := range []string{"Distribution of Money Saved", "Distribution of Cigarettes Avoided"} {
			if !strings.Contains(out, title) {
				t.Errorf("width %d: overview missing %q", width, title)
			}
		}
	}
}

func TestRegressionRangeFollowsData(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	if got := a.rangeMax(); got != 2200 {
		t.Fatalf("rangeMax = %v, want data maximum 2200", got)
	}
	if n := len(a.view.line); n == 0 || a.view.line[n-1].X != 2200 {
		t.Errorf("line = %+v, want it to end at 2200", a.view.line)
	}

	opts := defaultOpts()
	opts.RangeMax = 1000
	a = loadedApp(t, opts)
	if n := len(a.view.line); n == 0 || a.view.line[n-1].X != 1000 {
		t.Errorf("configured line ends at %+v, want 1000", a.view.line)
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	if out := m.(App).View(); strings.Contains(out, "Total Users") {
		t.Error("dashboard rendered below the minimum width")
	}
}

func TestRefreshErrorKeepsData(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	before := a.ds
	a.refreshing = true
	m, _ := a.Update(RefreshDataMsg{Err: errors.New("disk gone")})
	a = m.(App)
	if a.ds != before {
		t.Error("failed reload replaced the dataset")
	}
	if a.refreshing {
		t.Error("still refreshing after failure")
	}
	if a.flash != "reload failed" {
		t.Errorf("flash = %q", a.flash)
	}
}

func TestLoginGate(t *testing.T) {
	opts := defaultOpts()
	opts.Auth = auth.NewService(memStore{}, 0)
	a := loadedApp(t, opts)

	if !a.gated() || a.loginForm == nil {
		t.Fatal("login form not shown")
	}
	if out := a.View(); strings.Contains(out, "Total Users") {
		t.Error("dashboard visible before sign in")
	}
	// Tab keys go to the form, not the dashboard.
	a = press(t, a, "x")
	if a.activeTab != tabOverview {
		t.Error("tab changed behind the login form")
	}

	m, _ := a.Update(authResultMsg{err: auth.ErrInvalidLogin, mode: modeLogin})
	a = m.(App)
	if a.loginForm == nil || a.loginErr != "Invalid username or password" {
		t.Fatalf("loginErr = %q, form open = %v", a.loginErr, a.loginForm != nil)
	}

	m, _ = a.Update(authResultMsg{session: auth.Session{Username: "u4", LoginTime: time.Now()}, mode: modeLogin})
	a = m.(App)
	if a.loginForm != nil || a.gated() {
		t.Fatal("still gated after sign in")
	}
	if a.view.mine == nil || a.view.mine.UserID != "u4" {
		t.Errorf("mine = %+v, want u4", a.view.mine)
	}
	if !strings.Contains(a.flash, "u4") {
		t.Errorf("flash = %q", a.flash)
	}

	a = press(t, a, "L")
	if a.session != nil || a.loginForm == nil {
		t.Error("L did not sign out")
	}
}

func TestAuthCmdRegistersThenSignsIn(t *testing.T) {
	svc := auth.NewService(memStore{}, 0)
	msg := authCmd(svc, loginValues{
		mode:     modeRegister,
		username: "  newuser ",
		password: "hunter22",
		confirm:  "hunter22",
	})()
	res, ok := msg.(authResultMsg)
	if !ok {
		t.Fatalf("msg = %T", msg)
	}
	if res.err != nil {
		t.Fatalf("err = %v", res.err)
	}
	if res.session.Username != "newuser" {
		t.Errorf("username = %q", res.session.Username)
	}

	res = authCmd(svc, loginValues{mode: modeRegister, username: "newuser", password: "hunter22", confirm: "hunter22"})().(authResultMsg)
	if !errors.Is(res.err, auth.ErrUserExists) {
		t.Errorf("second register err = %v, want ErrUserExists", res.err)
	}
}

func TestSettingsClustersPersist(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t, defaultOpts())

	a = press(t, a, "x", "j", "enter")
	if !a.settings.editing || a.settings.cursor != settingsFieldClusters {
		t.Fatalf("editing = %v cursor = %d", a.settings.editing, a.settings.cursor)
	}
	a.settings.input.SetValue("2")
	a = press(t, a, "enter")
	if a.settings.err != nil {
		t.Fatalf("settings err: %v", a.settings.err)
	}
	if got := a.seg.Config().Clusters; got != 2 {
		t.Errorf("segmenter clusters = %d, want 2", got)
	}
	if got := len(a.analysis.Clusters); got != 2 {
		t.Errorf("analysis clusters = %d, want 2", got)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Segmentation.Clusters != 2 {
		t.Errorf("saved clusters = %d, want 2", cfg.Segmentation.Clusters)
	}
}

func TestSettingsRejectsBadValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t, defaultOpts())

	a = press(t, a, "x", "j", "enter")
	a.settings.input.SetValue("0")
	a = press(t, a, "enter")
	if a.settings.err == nil {
		t.Fatal("zero clusters accepted")
	}
	if got := a.seg.Config().Clusters; got != 3 {
		t.Errorf("clusters = %d, want unchanged 3", got)
	}
}

func TestSettingsRankToggle(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t, defaultOpts())

	a = press(t, a, "x", "j", "j", "j", "enter")
	if !a.seg.Config().RankBySavings {
		t.Fatal("rank toggle did not apply")
	}
	cfg, _ := config.Load()
	if !cfg.Segmentation.RankBySavings {
		t.Error("rank toggle not saved")
	}
}

func TestSettingsPasswordOnlyWhenSignedIn(t *testing.T) {
	a := loadedApp(t, defaultOpts())
	if a.settingsFieldCount() != settingsFieldPassword {
		t.Error("password field offered without sign in")
	}
}
