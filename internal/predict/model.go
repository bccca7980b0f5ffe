// Package predict fits a one-variable linear model of money saved against
// cigarettes avoided and serves predictions from it.
package predict

import (
	"errors"
	"fmt"
	"iter"

	"github.com/breathsave/breathsave/internal/model"
)

var (
	ErrNotEnoughVariance = errors.New("not enough variance in cigarettes avoided")
	ErrNotFitted         = errors.New("model not fitted")
	ErrInvalidRange      = errors.New("invalid prediction range")
)

// Default prediction line parameters. DefaultRangeMax only applies when
// neither a configured range nor training data is available.
const (
	DefaultRangeMax    = 2500.0
	DefaultRangePoints = 100
)

// Model is a fitted ordinary least squares line y = Coefficient*x + Intercept.
// The zero value is unfitted. Once fitted, a Model may be read concurrently
// as long as nothing calls Fit on it again.
type Model struct {
	fitted    bool
	coef      float64
	intercept float64
	x, y      []float64
}

// Fit trains a new model on table.
func Fit(table model.MilestoneTable) (*Model, error) {
	m := &Model{}
	if err := m.Fit(table); err != nil {
		return nil, err
	}
	return m, nil
}

// Fit trains m on money_saved against total_cigs_avoided. On error m is unchanged.
func (m *Model) Fit(table model.MilestoneTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("fitting: %w", err)
	}
	x, err := table.Column(model.ColTotalCigsAvoided)
	if err != nil {
		return fmt.Errorf("fitting: %w", err)
	}
	y, err := table.Column(model.ColMoneySaved)
	if err != nil {
		return fmt.Errorf("fitting: %w", err)
	}
	if len(x) < 2 {
		return fmt.Errorf("fitting %d rows: %w", len(x), ErrNotEnoughVariance)
	}

	mx, my := mean(x), mean(y)
	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return fmt.Errorf("fitting: all x equal %g: %w", x[0], ErrNotEnoughVariance)
	}

	m.coef = sxy / sxx
	m.intercept = my - m.coef*mx
	m.x, m.y = x, y
	m.fitted = true
	return nil
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool { return m != nil && m.fitted }

// Predict returns the predicted savings for x cigarettes avoided.
func (m *Model) Predict(x float64) (float64, error) {
	if !m.Fitted() {
		return 0, ErrNotFitted
	}
	return m.at(x), nil
}

// PredictBatch predicts each x in order.
func (m *Model) PredictBatch(xs []float64) ([]float64, error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.at(x)
	}
	return out, nil
}

func (m *Model) at(x float64) float64 { return m.coef*x + m.intercept }

// Metrics reports the fitted line and its R² on the training data.
// R² is not clamped and can be negative.
func (m *Model) Metrics() (model.RegressionMetrics, error) {
	if !m.Fitted() {
		return model.RegressionMetrics{}, ErrNotFitted
	}
	my := mean(m.y)
	var ssRes, ssTot float64
	for i := range m.x {
		r := m.y[i] - m.at(m.x[i])
		ssRes += r * r
		d := m.y[i] - my
		ssTot += d * d
	}
	var r2 float64
	switch {
	case ssTot != 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}
	return model.RegressionMetrics{
		Coefficient:    m.coef,
		Intercept:      m.intercept,
		R2:             r2,
		Interpretation: fmt.Sprintf("Each cigarette avoided = $%.2f saved", m.coef),
	}, nil
}

// PredictionRange yields n evenly spaced x values from 0 to maxX inclusive
// with their predictions. The sequence can be ranged over more than once.
func (m *Model) PredictionRange(maxX float64, n int) (iter.Seq2[float64, float64], error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	if maxX < 0 || n < 2 {
		return nil, fmt.Errorf("max %g, %d points: %w", maxX, n, ErrInvalidRange)
	}
	step := maxX / float64(n-1)
	coef, icpt := m.coef, m.intercept
	return func(yield func(float64, float64) bool) {
		for i := 0; i < n; i++ {
			x := float64(i) * step
			if i == n-1 {
				x = maxX
			}
			if !yield(x, coef*x+icpt) {
				return
			}
		}
	}, nil
}

// Points collects PredictionRange into a slice.
func (m *Model) Points(maxX float64, n int) ([]model.Point, error) {
	seq, err := m.PredictionRange(maxX, n)
	if err != nil {
		return nil, err
	}
	pts := make([]model.Point, 0, n)
	for x, y := range seq {
		pts = append(pts, model.Point{X: x, Y: y})
	}
	return pts, nil
}

// RangeMax returns the upper x bound for the regression line: configured
// when positive, otherwise the largest cigarettes-avoided value the model
// was trained on.
func (m *Model) RangeMax(configured float64) float64 {
	if configured > 0 {
		return configured
	}
	if m.Fitted() {
		top := m.x[0]
		for _, x := range m.x[1:] {
			top = max(top, x)
		}
		if top > 0 {
			return top
		}
	}
	return DefaultRangeMax
}

// EstimateTimelineDays converts a savings figure into days at $10 a day.
func EstimateTimelineDays(predicted float64) float64 {
	return max(0, predicted/10)
}

// PerCigarette returns savings per cigarette, treating cigs below 1 as 1.
func PerCigarette(predicted, cigs float64) float64 {
	return predicted / max(cigs, 1)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
