// Package cmd implements the breathsave CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/segment"
	"github.com/breathsave/breathsave/internal/store"
	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagDataDir string
	flagNoCache bool
	flagQuiet   bool
	flagSeed    uint64
	flagRank    bool
)

var rootCmd = &cobra.Command{
	Use:   "breathsave",
	Short: "Smoking-cessation savings analytics",
	Long: "Analyze a breathsave data directory: community savings, user segments,\n" +
		"savings predictions, and rewards.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (runSummary -> analyze -> loadConfig -> rootCmd).
	rootCmd.RunE = runSummary
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory holding the breathsave CSV files (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 42, "Random seed for segmentation")
	rootCmd.PersistentFlags().BoolVar(&flagRank, "rank", false, "Name segments by average savings instead of cluster order")
}

// loadConfig reads the config file and applies command-line overrides.
// A broken config file is reported and defaults are used.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(err.Error()+", using defaults"))
		cfg = config.DefaultConfig()
	}

	cfg.General.DataDir = config.GetDataDir(cfg)
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagNoCache {
		cfg.General.UseCache = false
	}
	if rootCmd.PersistentFlags().Changed("seed") {
		cfg.Segmentation.Seed = flagSeed
	}
	if flagRank {
		cfg.Segmentation.RankBySavings = true
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg
}

func segmenterFromConfig(cfg config.Config) *segment.Segmenter {
	return segment.New(segmentConfig(cfg))
}

func segmentConfig(cfg config.Config) segment.Config {
	return segment.Config{
		Clusters:      cfg.Segmentation.Clusters,
		Seed:          cfg.Segmentation.Seed,
		Restarts:      cfg.Segmentation.Restarts,
		MaxIter:       cfg.Segmentation.MaxIter,
		RankBySavings: cfg.Segmentation.RankBySavings,
	}
}

// showProgress reports whether progress lines should go to stderr.
func showProgress() bool {
	return !flagQuiet && isatty.IsTerminal(os.Stderr.Fd())
}

// loadData is the shared data loading path used by all commands.
// Uses the SQLite cache when available for fast subsequent runs.
func loadData(cfg config.Config) (*pipeline.Dataset, error) {
	verbose := showProgress()
	dir := cfg.General.DataDir
	if verbose {
		fmt.Fprintf(os.Stderr, "  Reading %s...\n", dir)
	}

	progressFn := func(current, total int) {
		if verbose {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	if cfg.General.UseCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			if verbose {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
			}
		} else {
			defer func() { _ = cache.Close() }()

			ds, err := pipeline.LoadWithCache(dir, cache, progressFn)
			if err == nil {
				if verbose {
					fmt.Fprintf(os.Stderr, "\r  Loaded %s users (%d cached, %d reparsed)    \n",
						cli.FormatNumber(int64(ds.Milestones.Len())), ds.Stats.CacheHits, ds.Stats.Reparsed)
				}
				reportMissing(ds)
				return ds, nil
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
			}
		}
	}

	ds, err := pipeline.Load(dir, progressFn)
	if err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr)
		}
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s users across %d files    \n",
			cli.FormatNumber(int64(ds.Milestones.Len())), ds.Stats.ParsedFiles)
	}
	reportMissing(ds)
	return ds, nil
}

func reportMissing(ds *pipeline.Dataset) {
	if flagQuiet {
		return
	}
	for _, f := range ds.Stats.MissingFiles {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(f+" not found, continuing without it"))
	}
}

// analyze loads the data directory and runs every engine over it.
func analyze() (config.Config, *pipeline.Dataset, *pipeline.Analysis, error) {
	cfg := loadConfig()
	ds, err := loadData(cfg)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, ds, pipeline.Analyze(ds, segmenterFromConfig(cfg)), nil
}

// Output formats for commands with machine-readable output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", f)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	}
	return checkFormat(format)
}
