package cmd

import (
	"fmt"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/pipeline"

	"github.com/spf13/cobra"
)

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Points and reward redemption summary",
	RunE:  runRewards,
}

func init() {
	rootCmd.AddCommand(rewardsCmd)
}

func runRewards(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	ds, err := loadData(cfg)
	if err != nil {
		return err
	}
	rs := pipeline.RewardSummary(ds.Milestones, ds.Rewards)

	fmt.Println()
	fmt.Println(cli.RenderTitle("REWARDS"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total points", cli.FormatNumber(rs.TotalPoints)},
			{"Avg points per user", cli.FormatFloat(rs.AvgPoints, 1)},
			{cli.Separator},
			{"Rewards issued", cli.FormatNumber(int64(rs.TotalRewards))},
			{"Redeemed", cli.FormatNumber(int64(rs.Redeemed))},
			{"Pending", cli.FormatNumber(int64(rs.Pending))},
		},
	}))

	if len(rs.TypeCounts) > 0 {
		fmt.Println()
		fmt.Println("  Reward types")
		labelW := 0
		for _, tc := range rs.TypeCounts {
			labelW = max(labelW, len(tc.Label))
		}
		peak := float64(rs.TypeCounts[0].Count)
		for _, tc := range rs.TypeCounts {
			label := fmt.Sprintf("%-*s %5d", labelW, tc.Label, tc.Count)
			fmt.Println(cli.RenderHorizontalBar(label, float64(tc.Count), peak, 30))
		}
	}

	top, err := pipeline.TopN(ds.Milestones, pipeline.TopEarners, model.ColPoints)
	if err != nil {
		fmt.Println(cli.RenderError("Top earners", err))
		return nil
	}
	t := cli.Table{
		Title:   fmt.Sprintf("Top %d Earners", len(top)),
		Headers: []string{"User", "Points", "Days"},
	}
	for _, m := range top {
		t.Rows = append(t.Rows, []string{
			m.UserID,
			cli.FormatNumber(int64(m.Points)),
			cli.FormatNumber(int64(m.TotalDays)),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}
