package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/source"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	dataDir := cfg.General.DataDir
	if flagDataDir != "" {
		dataDir = flagDataDir
	}
	clusters := strconv.Itoa(cfg.Segmentation.Clusters)
	seed := strconv.FormatUint(cfg.Segmentation.Seed, 10)
	themeName := cfg.Appearance.Theme
	backend := cfg.Auth.Backend
	useCache := cfg.General.UseCache
	rank := cfg.Segmentation.RankBySavings

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to breathsave!").
				Description("Answer a few questions; everything can be changed later."),
			huh.NewInput().
				Title("Data directory").
				Description("Holds "+source.MilestonesFile+" and the optional rewards and notifications files.").
				Value(&dataDir).
				Validate(validateDataDir),
			huh.NewConfirm().
				Title("Cache parsed data between runs?").
				Value(&useCache),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Number of segments").
				Value(&clusters).
				Validate(positiveInt),
			huh.NewInput().
				Title("Segmentation seed").
				Value(&seed).
				Validate(func(s string) error {
					if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err != nil {
						return errors.New("enter a non-negative whole number")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Name segments by average savings?").
				Description("Otherwise names follow cluster order.").
				Value(&rank),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&themeName),
			huh.NewSelect[string]().
				Title("Where should accounts be stored?").
				Options(
					huh.NewOption("SQLite cache database", config.BackendSQLite),
					huh.NewOption("users.json file", config.BackendJSON),
				).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.General.DataDir = strings.TrimSpace(dataDir)
	cfg.General.UseCache = useCache
	cfg.Segmentation.Clusters, _ = strconv.Atoi(strings.TrimSpace(clusters))
	cfg.Segmentation.Seed, _ = strconv.ParseUint(strings.TrimSpace(seed), 10, 64)
	cfg.Segmentation.RankBySavings = rank
	cfg.Appearance.Theme = themeName
	cfg.Auth.Backend = backend

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	if _, err := os.Stat(pipeline.DataPath(cfg.General.DataDir, source.MilestonesFile)); err != nil {
		fmt.Printf("  Note: %s is not in %s yet.\n", source.MilestonesFile, cfg.General.DataDir)
	}
	fmt.Println("  Run `breathsave setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

func validateDataDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("data directory is required")
	}
	if fi, err := os.Stat(s); err == nil && !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a whole number of at least 1")
	}
	return nil
}
