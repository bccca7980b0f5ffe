package cmd

import (
	"fmt"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/pipeline"

	"github.com/spf13/cobra"
)

var correlationsCmd = &cobra.Command{
	Use:   "correlations",
	Short: "Pearson correlations between milestone columns",
	RunE:  runCorrelations,
}

func init() {
	rootCmd.AddCommand(correlationsCmd)
}

func runCorrelations(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	ds, err := loadData(cfg)
	if err != nil {
		return err
	}

	m, err := pipeline.Correlations(ds.Milestones)
	if err != nil {
		return fmt.Errorf("computing correlations: %w", err)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CORRELATIONS"))
	fmt.Println()

	t := cli.Table{Headers: append([]string{""}, m.Labels...)}
	for i, row := range m.Values {
		cells := []string{m.Labels[i]}
		for _, r := range row {
			cells = append(cells, cli.RenderCorrelation(r))
		}
		t.Rows = append(t.Rows, cells)
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}
