package cmd

import (
	"fmt"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Community savings overview",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	_, ds, an, err := analyze()
	if err != nil {
		return err
	}

	if ds.Milestones.Len() == 0 {
		fmt.Println("\n  No users found in the milestones file.")
		return nil
	}

	ov := an.Overview
	fmt.Println()
	fmt.Println(cli.RenderTitle("BREATHSAVE  Community Overview"))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Users", cli.FormatNumber(int64(ov.TotalUsers))},
			{"Avg cigarettes avoided", cli.FormatFloat(ov.AvgCigsAvoided, 1)},
			{"Total cigarettes avoided", cli.FormatCount(int64(ov.TotalCigsAvoided))},
			{cli.Separator},
			{"Total money saved", cli.FormatMoney(ov.TotalSavings)},
			{"Avg saved per user", cli.FormatMoney(ov.TotalSavings / float64(max(ov.TotalUsers, 1)))},
			{"Avg days smoke-free", cli.FormatFloat(ov.AvgDays, 1)},
		},
	}))
	fmt.Println()

	top, err := pipeline.TopN(ds.Milestones, pipeline.TopSavers, model.ColMoneySaved)
	if err != nil {
		fmt.Println(cli.RenderError("Top savers", err))
	} else {
		fmt.Print(cli.RenderTable(saversTable(fmt.Sprintf("Top %d Savers", len(top)), top)))
		fmt.Println()
	}

	printHistogram(ds.Milestones, model.ColMoneySaved, "Money saved distribution", cli.FormatMoneyShort)
	printHistogram(ds.Milestones, model.ColTotalCigsAvoided, "Cigarettes avoided distribution", func(v float64) string {
		return cli.FormatCount(int64(v))
	})
	return nil
}

// printHistogram prints a one-line sparkline of col over the standard bins,
// bracketed by the lowest and highest bin edges.
func printHistogram(table model.MilestoneTable, col, title string, edge func(float64) string) {
	values, err := table.Column(col)
	if err != nil {
		return
	}
	bins := pipeline.Histogram(values, pipeline.HistogramBins)
	if len(bins) == 0 {
		return
	}
	fmt.Println("  " + title)
	fmt.Printf("  %s %s %s\n", edge(bins[0].Lo), cli.RenderSparkline(pipeline.HistogramCounts(bins)), edge(bins[len(bins)-1].Hi))
	fmt.Println()
}

func saversTable(title string, rows []model.Milestone) cli.Table {
	t := cli.Table{
		Title:   title,
		Headers: []string{"User", "Avoided", "Saved", "Days"},
	}
	for _, m := range rows {
		t.Rows = append(t.Rows, []string{
			m.UserID,
			cli.FormatNumber(int64(m.TotalCigsAvoided)),
			cli.RenderMoney(m.MoneySaved),
			cli.FormatNumber(int64(m.TotalDays)),
		})
	}
	return t
}
