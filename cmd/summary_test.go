package cmd

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/breathsave/breathsave/internal/cli"
	"github.com/breathsave/breathsave/internal/model"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	_ = w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestPrintHistogram_BothColumns(t *testing.T) {
	table := model.NewMilestoneTable([]model.Milestone{
		{UserID: "a", TotalCigsAvoided: 100, MoneySaved: 15},
		{UserID: "b", TotalCigsAvoided: 2000, MoneySaved: 300},
		{UserID: "c", TotalCigsAvoided: 800, MoneySaved: 120},
	})
	out := captureStdout(t, func() {
		printHistogram(table, model.ColMoneySaved, "Money saved distribution", cli.FormatMoneyShort)
		printHistogram(table, model.ColTotalCigsAvoided, "Cigarettes avoided distribution", func(v float64) string {
			return cli.FormatCount(int64(v))
		})
	})
	for _, want := range []string{"Money saved distribution", "Cigarettes avoided distribution", "2,000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
