package tui

import (
	"fmt"
	"strings"

	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// setupValues is bound to the first-run wizard fields.
type setupValues struct {
	dataDir  string
	theme    string
	backend  string
	useCache bool
	saveErr  error
}

func newSetupValues(opts Options) *setupValues {
	return &setupValues{
		dataDir:  opts.DataDir,
		theme:    theme.Active.Name,
		backend:  config.BackendSQLite,
		useCache: opts.UseCache,
	}
}

func newSetupForm(v *setupValues, users int, dataDir string) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to breathsave").
				Description(fmt.Sprintf("Found %d users in %s.\nA few settings and you're in.", users, dataDir)),
			huh.NewInput().
				Title("Data directory").
				Description("Holds the milestones, rewards and notifications CSV files.").
				Value(&v.dataDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("data directory is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.theme),
			huh.NewSelect[string]().
				Title("Where should accounts be stored?").
				Options(
					huh.NewOption("SQLite cache database", config.BackendSQLite),
					huh.NewOption("users.json file", config.BackendJSON),
				).
				Value(&v.backend),
			huh.NewConfirm().
				Title("Cache parsed data between runs?").
				Value(&v.useCache),
		),
	).WithShowHelp(true)
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.setupForm = nil
		reload := a.applySetup()
		if a.setupVals.saveErr != nil {
			a.setFlash("could not save config: " + a.setupVals.saveErr.Error())
		} else {
			a.setFlash("saved " + config.ConfigPath())
		}
		m, next := a.afterLoad()
		if reload {
			app := m.(App)
			app.refreshing = true
			return app, tea.Batch(next, refreshDataCmd(app.opts, app.seg))
		}
		return m, next
	case huh.StateAborted:
		a.setupForm = nil
		return a.afterLoad()
	}
	return a, cmd
}

// applySetup saves the wizard answers and applies them to the running
// dashboard. It reports whether the data directory changed.
func (a *App) applySetup() bool {
	v := a.setupVals
	cfg, _ := config.Load()

	dir := strings.TrimSpace(v.dataDir)
	reload := dir != a.opts.DataDir
	cfg.General.DataDir = dir
	cfg.General.UseCache = v.useCache
	cfg.Appearance.Theme = v.theme
	cfg.Auth.Backend = v.backend

	a.opts.DataDir = dir
	a.opts.UseCache = v.useCache
	theme.SetActive(v.theme)

	v.saveErr = config.Save(cfg)
	return reload
}
