package segment

import "math"

// Scaler holds per-feature standardization parameters.
// Std uses the population convention (divide by N), matching StandardScaler.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes column means and population standard deviations of x.
// x is row-major: len(x) samples, each with the same number of features.
func FitScaler(x [][]float64) Scaler {
	if len(x) == 0 {
		return Scaler{}
	}
	d := len(x[0])
	mean := make([]float64, d)
	std := make([]float64, d)
	n := float64(len(x))

	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			diff := v - mean[j]
			std[j] += diff * diff
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
	}
	return Scaler{Mean: mean, Std: std}
}

// Constant reports whether feature j has zero variance.
func (s Scaler) Constant(j int) bool {
	return s.Std[j] == 0
}

// Transform returns a standardized copy of x. Zero-variance features map to 0.
func (s Scaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled := make([]float64, len(row))
		for j, v := range row {
			if s.Std[j] == 0 {
				continue
			}
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out
}

// Standardize fits a scaler on x and returns the transformed copy.
func Standardize(x [][]float64) [][]float64 {
	return FitScaler(x).Transform(x)
}
