package model

import "time"

// ClusterStats holds per-segment averages over the original, unscaled data.
type ClusterStats struct {
	ID             int     `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Users          int     `json:"users" yaml:"users"`
	AvgSavings     float64 `json:"avg_savings" yaml:"avg_savings"`
	AvgCigsAvoided float64 `json:"avg_cigs_avoided" yaml:"avg_cigs_avoided"`
	AvgCigsSmoked  float64 `json:"avg_cigs_smoked" yaml:"avg_cigs_smoked"`
}

// RegressionMetrics describes a fitted savings model.
type RegressionMetrics struct {
	Coefficient    float64 `json:"coefficient" yaml:"coefficient"` // $ per cigarette avoided
	Intercept      float64 `json:"intercept" yaml:"intercept"`
	R2             float64 `json:"r2_score" yaml:"r2_score"`
	Interpretation string  `json:"interpretation" yaml:"interpretation"`
}

// Point is one (x, predicted y) sample on the regression line.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// OverviewStats holds the community-wide headline numbers.
type OverviewStats struct {
	TotalUsers       int     `json:"total_users" yaml:"total_users"`
	AvgCigsAvoided   float64 `json:"avg_cigs_avoided" yaml:"avg_cigs_avoided"`
	TotalSavings     float64 `json:"total_savings" yaml:"total_savings"`
	AvgDays          float64 `json:"avg_days" yaml:"avg_days"`
	TotalCigsAvoided float64 `json:"total_cigs_avoided" yaml:"total_cigs_avoided"`
}

// RewardStats holds the rewards wallet summary.
type RewardStats struct {
	TotalPoints  int64       `json:"total_points" yaml:"total_points"`
	AvgPoints    float64     `json:"avg_points" yaml:"avg_points"`
	Redeemed     int         `json:"redeemed" yaml:"redeemed"`
	Pending      int         `json:"pending" yaml:"pending"`
	TypeCounts   []TypeCount `json:"type_counts" yaml:"type_counts"`
	StatusCounts []TypeCount `json:"status_counts" yaml:"status_counts"`
	TotalRewards int         `json:"total_rewards" yaml:"total_rewards"`
}

// TypeCount is a label with its frequency.
type TypeCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// HistogramBin is one equal-width bucket.
type HistogramBin struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Count int     `json:"count" yaml:"count"`
}

// CorrelationMatrix is a square Pearson matrix over Labels.
type CorrelationMatrix struct {
	Labels []string    `json:"labels" yaml:"labels"`
	Values [][]float64 `json:"values" yaml:"values"`
}

// DailyCount is a per-day tally of scheduled notifications.
type DailyCount struct {
	Date  time.Time `json:"date" yaml:"date"`
	Count int       `json:"count" yaml:"count"`
}
