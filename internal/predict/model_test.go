package predict

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/breathsave/breathsave/internal/model"
)

func tableXY(xs, ys []float64) model.MilestoneTable {
	rows := make([]model.Milestone, len(xs))
	for i := range xs {
		rows[i] = model.Milestone{TotalCigsAvoided: xs[i], MoneySaved: ys[i]}
	}
	return model.NewMilestoneTable(rows)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFit_ExactLine(t *testing.T) {
	m, err := Fit(tableXY([]float64{0, 10, 20}, []float64{10, 30, 50}))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := m.Metrics()
	if err != nil {
		t.Fatal(err)
	}
	if !approx(got.Coefficient, 2) || !approx(got.Intercept, 10) || !approx(got.R2, 1) {
		t.Errorf("metrics = %+v, want coef 2 intercept 10 r2 1", got)
	}
	if got.Interpretation != "Each cigarette avoided = $2.00 saved" {
		t.Errorf("interpretation = %q", got.Interpretation)
	}
	y, err := m.Predict(15)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(y, 40) {
		t.Errorf("Predict(15) = %g, want 40", y)
	}
}

func TestPredictBatch_OrderAndLength(t *testing.T) {
	m, err := Fit(tableXY([]float64{0, 10, 20}, []float64{10, 30, 50}))
	if err != nil {
		t.Fatal(err)
	}
	xs := []float64{20, 0, 5}
	ys, err := m.PredictBatch(xs)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{50, 10, 20}
	if len(ys) != len(want) {
		t.Fatalf("len = %d, want %d", len(ys), len(want))
	}
	for i := range want {
		if !approx(ys[i], want[i]) {
			t.Errorf("ys[%d] = %g, want %g", i, ys[i], want[i])
		}
	}
}

func TestPredictionRange(t *testing.T) {
	m, err := Fit(tableXY([]float64{0, 100}, []float64{0, 15}))
	if err != nil {
		t.Fatal(err)
	}
	seq, err := m.PredictionRange(100, 5)
	if err != nil {
		t.Fatal(err)
	}
	wantX := []float64{0, 25, 50, 75, 100}
	for pass := 0; pass < 2; pass++ {
		i := 0
		for x, y := range seq {
			if !approx(x, wantX[i]) {
				t.Errorf("pass %d x[%d] = %g, want %g", pass, i, x, wantX[i])
			}
			if !approx(y, 0.15*wantX[i]) {
				t.Errorf("pass %d y[%d] = %g, want %g", pass, i, y, 0.15*wantX[i])
			}
			i++
		}
		if i != len(wantX) {
			t.Fatalf("pass %d yielded %d points, want %d", pass, i, len(wantX))
		}
	}
}

func TestPredictionRange_EarlyStop(t *testing.T) {
	m, _ := Fit(tableXY([]float64{0, 1}, []float64{0, 1}))
	seq, err := m.PredictionRange(10, 100)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
}

func TestPredictionRange_Invalid(t *testing.T) {
	m, _ := Fit(tableXY([]float64{0, 1}, []float64{0, 1}))
	for _, tc := range []struct {
		max float64
		n   int
	}{{-1, 10}, {100, 1}, {100, 0}} {
		if _, err := m.PredictionRange(tc.max, tc.n); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("PredictionRange(%g, %d): err = %v, want ErrInvalidRange", tc.max, tc.n, err)
		}
	}
	pts, err := m.Points(0, 3)
	if err != nil {
		t.Fatalf("zero max: %v", err)
	}
	for _, p := range pts {
		if p.X != 0 {
			t.Errorf("x = %g, want 0", p.X)
		}
	}
}

func TestNotFitted(t *testing.T) {
	var m Model
	if _, err := m.Predict(1); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict: err = %v", err)
	}
	if _, err := m.PredictBatch([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("PredictBatch: err = %v", err)
	}
	if _, err := m.Metrics(); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Metrics: err = %v", err)
	}
	if _, err := m.PredictionRange(10, 10); !errors.Is(err, ErrNotFitted) {
		t.Errorf("PredictionRange: err = %v", err)
	}
}

func TestFit_NotEnoughVariance(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
	}{
		{"equal x", []float64{5, 5, 5}, []float64{1, 2, 3}},
		{"single row", []float64{5}, []float64{1}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tableXY(tt.xs, tt.ys))
			if !errors.Is(err, ErrNotEnoughVariance) {
				t.Fatalf("err = %v, want ErrNotEnoughVariance", err)
			}
		})
	}
}

func TestFit_MissingColumn(t *testing.T) {
	table := tableXY([]float64{1, 2, 3}, []float64{2, 4, 6})
	table.Columns = []string{model.ColUserID, model.ColTotalCigsAvoided, model.ColTotalCigsSmoked, model.ColTotalDays, model.ColPoints}
	_, err := Fit(table)
	if !errors.Is(err, model.ErrInvalidColumn) {
		t.Fatalf("err = %v, want ErrInvalidColumn", err)
	}
	if !strings.Contains(err.Error(), model.ColMoneySaved) {
		t.Errorf("error %q does not name %s", err, model.ColMoneySaved)
	}
}

func TestFit_FailureLeavesModelUnchanged(t *testing.T) {
	var m Model
	if err := m.Fit(tableXY([]float64{0, 10}, []float64{0, 20})); err != nil {
		t.Fatal(err)
	}
	if err := m.Fit(tableXY([]float64{3, 3}, []float64{1, 2})); err == nil {
		t.Fatal("expected error")
	}
	got, err := m.Predict(5)
	if err != nil || !approx(got, 10) {
		t.Fatalf("Predict(5) = %g, %v; want 10", got, err)
	}
}

func TestMetrics_R2(t *testing.T) {
	// Noisy data: R² strictly between 0 and 1.
	m, err := Fit(tableXY([]float64{1, 2, 3, 4}, []float64{2, 1, 4, 3}))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := m.Metrics()
	if got.R2 <= 0 || got.R2 >= 1 {
		t.Errorf("R2 = %g, want in (0,1)", got.R2)
	}

	// Constant y is fitted exactly.
	m, err = Fit(tableXY([]float64{1, 2, 3}, []float64{4, 4, 4}))
	if err != nil {
		t.Fatal(err)
	}
	got, _ = m.Metrics()
	if got.R2 != 1 || !approx(got.Coefficient, 0) {
		t.Errorf("constant y metrics = %+v", got)
	}
}

func TestFit_Deterministic(t *testing.T) {
	tbl := tableXY([]float64{3, 8, 1, 13, 21}, []float64{0.5, 1.3, 0.1, 2.2, 3.0})
	a, _ := Fit(tbl)
	b, _ := Fit(tbl)
	ma, _ := a.Metrics()
	mb, _ := b.Metrics()
	if ma != mb {
		t.Fatalf("metrics differ: %+v vs %+v", ma, mb)
	}
}

func TestFit_CopiesTrainingData(t *testing.T) {
	tbl := tableXY([]float64{0, 10, 20}, []float64{10, 30, 50})
	m, err := Fit(tbl)
	if err != nil {
		t.Fatal(err)
	}
	tbl.Rows[0].MoneySaved = 1000
	got, _ := m.Metrics()
	if !approx(got.R2, 1) {
		t.Fatalf("R2 changed after mutating input: %g", got.R2)
	}
}

func TestTimelineAndPerCigarette(t *testing.T) {
	if got := EstimateTimelineDays(150); got != 15 {
		t.Errorf("EstimateTimelineDays(150) = %g, want 15", got)
	}
	if got := EstimateTimelineDays(-20); got != 0 {
		t.Errorf("EstimateTimelineDays(-20) = %g, want 0", got)
	}
	if got := PerCigarette(30, 200); got != 0.15 {
		t.Errorf("PerCigarette(30, 200) = %g, want 0.15", got)
	}
	if got := PerCigarette(5, 0); got != 5 {
		t.Errorf("PerCigarette(5, 0) = %g, want 5", got)
	}
}

func TestRangeMax(t *testing.T) {
	var unfitted Model
	if got := unfitted.RangeMax(0); got != DefaultRangeMax {
		t.Errorf("unfitted RangeMax(0) = %v, want %v", got, DefaultRangeMax)
	}

	m, err := Fit(tableXY([]float64{10, 3200, 45}, []float64{1.5, 480, 6.75}))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.RangeMax(0); got != 3200 {
		t.Errorf("RangeMax(0) = %v, want data maximum 3200", got)
	}
	if got := m.RangeMax(1000); got != 1000 {
		t.Errorf("RangeMax(1000) = %v, want configured 1000", got)
	}
}
