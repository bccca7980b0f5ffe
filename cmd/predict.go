package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/predict"

	"github.com/spf13/cobra"
)

var (
	flagPredictFormat   string
	flagPredictRangeMax float64
	flagPredictPoints   int
)

var predictCmd = &cobra.Command{
	Use:   "predict [cigarettes...]",
	Short: "Predict money saved from cigarettes avoided",
	Long: "Fit a linear model of money saved against cigarettes avoided and predict\n" +
		"savings for each argument. With no arguments the configured default goal is used.",
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&flagPredictFormat, "format", "f", formatTable, "Output format: table, json or yaml")
	predictCmd.Flags().Float64Var(&flagPredictRangeMax, "range-max", 0, "Print the regression line from 0 to this many cigarettes")
	predictCmd.Flags().IntVar(&flagPredictPoints, "points", 0, "Number of points on the regression line (default from config)")
	rootCmd.AddCommand(predictCmd)
}

type prediction struct {
	Cigarettes   float64 `json:"cigarettes" yaml:"cigarettes"`
	Savings      float64 `json:"savings" yaml:"savings"`
	PerCigarette float64 `json:"per_cigarette" yaml:"per_cigarette"`
	TimelineDays float64 `json:"timeline_days" yaml:"timeline_days"`
}

type predictReport struct {
	Metrics     model.RegressionMetrics `json:"metrics" yaml:"metrics"`
	Predictions []prediction            `json:"predictions" yaml:"predictions"`
	Line        []model.Point           `json:"line,omitempty" yaml:"line,omitempty"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	if err := checkFormat(flagPredictFormat); err != nil {
		return err
	}
	cfg := loadConfig()

	xs := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid cigarette count %q", a)
		}
		xs = append(xs, v)
	}
	if len(xs) == 0 {
		xs = append(xs, cfg.Predictions.DefaultGoal)
	}

	ds, err := loadData(cfg)
	if err != nil {
		return err
	}
	m, err := predict.Fit(ds.Milestones)
	if err != nil {
		return err
	}
	metrics, err := m.Metrics()
	if err != nil {
		return err
	}
	ys, err := m.PredictBatch(xs)
	if err != nil {
		return err
	}

	report := predictReport{Metrics: metrics}
	for i, x := range xs {
		report.Predictions = append(report.Predictions, prediction{
			Cigarettes:   x,
			Savings:      ys[i],
			PerCigarette: predict.PerCigarette(ys[i], x),
			TimelineDays: predict.EstimateTimelineDays(ys[i]),
		})
	}

	if cmd.Flags().Changed("range-max") || cmd.Flags().Changed("points") {
		maxX := flagPredictRangeMax
		if maxX <= 0 {
			maxX = m.RangeMax(cfg.Predictions.RangeMax)
		}
		n := flagPredictPoints
		if n == 0 {
			n = cfg.Predictions.RangePoints
		}
		report.Line, err = m.Points(maxX, n)
		if err != nil {
			return err
		}
	}

	if flagPredictFormat != formatTable {
		return writeStructured(os.Stdout, flagPredictFormat, report)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SAVINGS PREDICTION"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Value"},
		Rows: [][]string{
			{"$ per cigarette avoided", fmt.Sprintf("%.4f", metrics.Coefficient)},
			{"Intercept", cli.FormatMoney(metrics.Intercept)},
			{"R²", cli.FormatFloat(metrics.R2, 4)},
		},
	}))
	fmt.Printf("\n  %s\n\n", metrics.Interpretation)

	t := cli.Table{Headers: []string{"Cigarettes", "Predicted", "Per cigarette", "Timeline"}}
	for _, p := range report.Predictions {
		t.Rows = append(t.Rows, []string{
			cli.FormatNumber(int64(p.Cigarettes)),
			cli.FormatMoney(p.Savings),
			cli.FormatMoney(p.PerCigarette),
			cli.FormatDays(p.TimelineDays),
		})
	}
	fmt.Print(cli.RenderTable(t))

	if len(report.Line) > 0 {
		ly := make([]float64, len(report.Line))
		for i, p := range report.Line {
			ly[i] = p.Y
		}
		fmt.Printf("\n  Regression line, 0 to %s cigarettes (%d points)\n", cli.FormatNumber(int64(report.Line[len(report.Line)-1].X)), len(report.Line))
		fmt.Printf("  %s  %s\n", cli.RenderSparkline(ly), cli.FormatMoney(ly[len(ly)-1]))
	}
	fmt.Println()
	return nil
}
