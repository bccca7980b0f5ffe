package cmd

import (
	"fmt"
	"time"

	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	flagTUINoLogin bool
	flagTUIRefresh time.Duration
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUINoLogin, "no-login", false, "Skip the sign-in form")
	tuiCmd.Flags().DurationVar(&flagTUIRefresh, "refresh", 0, "Reload the data directory at this interval (0 disables)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	// Card backgrounds need truecolor; detection falls back to Ascii under some terminals.
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts := tui.Options{
		DataDir:         cfg.General.DataDir,
		UseCache:        cfg.General.UseCache,
		Segmentation:    segmentConfig(cfg),
		RangeMax:        cfg.Predictions.RangeMax,
		RangePoints:     cfg.Predictions.RangePoints,
		DefaultGoal:     cfg.Predictions.DefaultGoal,
		RefreshInterval: flagTUIRefresh,
		NeedSetup:       !config.Exists(),
	}
	if !flagTUINoLogin {
		svc, closeFn, err := authService(cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		opts.Auth = svc
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if app, ok := final.(tui.App); ok {
		if sess, ok := app.Session(); ok {
			fmt.Printf("  Signed out %s after %s\n", sess.Username, time.Since(sess.LoginTime).Round(time.Second))
		}
	}
	return nil
}
