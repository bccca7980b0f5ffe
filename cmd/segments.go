package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagSegmentsFormat string
	flagSegmentsUsers  bool
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Group users into segments with k-means",
	RunE:  runSegments,
}

func init() {
	segmentsCmd.Flags().StringVarP(&flagSegmentsFormat, "format", "f", formatTable, "Output format: table, json or yaml")
	segmentsCmd.Flags().BoolVar(&flagSegmentsUsers, "users", false, "Also list each user's segment")
	rootCmd.AddCommand(segmentsCmd)
}

type segmentsReport struct {
	Clusters    int                  `json:"clusters" yaml:"clusters"`
	Seed        uint64               `json:"seed" yaml:"seed"`
	Inertia     float64              `json:"inertia" yaml:"inertia"`
	Segments    []model.ClusterStats `json:"segments" yaml:"segments"`
	Assignments []assignment         `json:"assignments,omitempty" yaml:"assignments,omitempty"`
}

type assignment struct {
	UserID  string `json:"user_id" yaml:"user_id"`
	Segment int    `json:"segment" yaml:"segment"`
}

func runSegments(_ *cobra.Command, _ []string) error {
	if err := checkFormat(flagSegmentsFormat); err != nil {
		return err
	}
	cfg := loadConfig()
	ds, err := loadData(cfg)
	if err != nil {
		return err
	}

	seg := segmenterFromConfig(cfg)
	res, err := seg.Run(ds.Milestones)
	if err != nil {
		return err
	}
	stats, err := seg.Statistics(ds.Milestones, res.Labels)
	if err != nil {
		return err
	}

	report := segmentsReport{
		Clusters: seg.Config().Clusters,
		Seed:     seg.Config().Seed,
		Inertia:  res.Inertia,
		Segments: stats,
	}
	if flagSegmentsUsers {
		for i, row := range ds.Milestones.Rows {
			report.Assignments = append(report.Assignments, assignment{UserID: row.UserID, Segment: res.Labels[i]})
		}
	}

	if flagSegmentsFormat != formatTable {
		return writeStructured(os.Stdout, flagSegmentsFormat, report)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("USER SEGMENTS  k=%d  seed=%d", report.Clusters, report.Seed)))
	fmt.Println()

	t := cli.Table{Headers: []string{"Segment", "Users", "Share", "Avg Saved", "Avg Avoided", "Avg Smoked"}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d %s", s.ID, s.Name),
			cli.FormatNumber(int64(s.Users)),
			cli.FormatPercent(float64(s.Users) / float64(max(len(res.Labels), 1))),
			cli.FormatMoney(s.AvgSavings),
			cli.FormatFloat(s.AvgCigsAvoided, 1),
			cli.FormatFloat(s.AvgCigsSmoked, 1),
		})
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Printf("\n  Inertia %.2f after %d iterations\n", res.Inertia, res.Iterations)

	if flagSegmentsUsers {
		ut := cli.Table{Headers: []string{"User", "Segment"}}
		for _, a := range report.Assignments {
			ut.Rows = append(ut.Rows, []string{a.UserID, strconv.Itoa(a.Segment)})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(ut))
	}
	fmt.Println()
	return nil
}
