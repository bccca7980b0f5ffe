package cmd

import (
	"fmt"

	"github.com/breathsave/breathsave/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", config.GetDataDir(cfg))
	if dir := config.GetDataDir(cfg); dir != cfg.General.DataDir {
		fmt.Println("                    (from BREATHSAVE_DATA_DIR)")
	}
	fmt.Printf("    Use cache:      %v\n", cfg.General.UseCache)
	fmt.Println()

	fmt.Println("  [Segmentation]")
	fmt.Printf("    Clusters:        %d\n", cfg.Segmentation.Clusters)
	fmt.Printf("    Seed:            %d\n", cfg.Segmentation.Seed)
	fmt.Printf("    Restarts:        %d\n", cfg.Segmentation.Restarts)
	fmt.Printf("    Max iterations:  %d\n", cfg.Segmentation.MaxIter)
	fmt.Printf("    Rank by savings: %v\n", cfg.Segmentation.RankBySavings)
	fmt.Println()

	fmt.Println("  [Predictions]")
	if cfg.Predictions.RangeMax > 0 {
		fmt.Printf("    Chart range:  0 to %.0f cigarettes, %d points\n", cfg.Predictions.RangeMax, cfg.Predictions.RangePoints)
	} else {
		fmt.Printf("    Chart range:  0 to the data maximum, %d points\n", cfg.Predictions.RangePoints)
	}
	fmt.Printf("    Default goal: %.0f cigarettes\n", cfg.Predictions.DefaultGoal)
	fmt.Println()

	fmt.Println("  [Auth]")
	fmt.Printf("    Backend:             %s\n", cfg.Auth.Backend)
	fmt.Printf("    Credentials store:   %s\n", config.CredentialsPath(cfg))
	fmt.Printf("    Min password length: %d\n", cfg.Auth.MinPasswordLen)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	if cfg.Daemon.RefreshSchedule != "" {
		fmt.Printf("    Schedule: %s\n", cfg.Daemon.RefreshSchedule)
	} else {
		fmt.Println("    Schedule: disabled")
	}
	fmt.Printf("    Watch:    %v\n", cfg.Daemon.Watch)
	fmt.Println()

	fmt.Println("  Run `breathsave setup` to reconfigure.")
	return nil
}
