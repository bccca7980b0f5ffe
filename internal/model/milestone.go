// Package model defines domain types for breathsave datasets and analytics output.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Milestone column names as they appear in the savings milestones CSV.
const (
	ColUserID           = "user_id"
	ColTotalCigsAvoided = "total_cigs_avoided"
	ColMoneySaved       = "money_saved"
	ColTotalCigsSmoked  = "total_cigs_smoked"
	ColTotalDays        = "total_days"
	ColPoints           = "points"
)

// MilestoneColumns lists every column a milestone table must carry.
var MilestoneColumns = []string{
	ColUserID,
	ColTotalCigsAvoided,
	ColMoneySaved,
	ColTotalCigsSmoked,
	ColTotalDays,
	ColPoints,
}

// ErrInvalidColumn is returned when an expected column is missing or non-numeric.
var ErrInvalidColumn = errors.New("invalid column")

// ColumnError names the columns that failed validation.
type ColumnError struct {
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("missing milestone columns: %s", strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrInvalidColumn.
func (e *ColumnError) Unwrap() error { return ErrInvalidColumn }

// ValidateColumns checks that header contains every milestone column.
func ValidateColumns(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		seen[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, c := range MilestoneColumns {
		if _, ok := seen[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ColumnError{Missing: missing}
	}
	return nil
}

// Milestone is one user's cessation progress.
type Milestone struct {
	UserID           string
	TotalCigsAvoided float64
	MoneySaved       float64
	TotalCigsSmoked  float64
	TotalDays        int
	Points           int
}

// MilestoneTable is the per-user dataset both analytics engines read.
// Columns records the header it was loaded from; a table built in code
// with a nil Columns is assumed to carry every milestone column.
type MilestoneTable struct {
	Columns []string
	Rows    []Milestone
}

// NewMilestoneTable wraps rows in a table carrying the full column set.
func NewMilestoneTable(rows []Milestone) MilestoneTable {
	return MilestoneTable{Columns: MilestoneColumns, Rows: rows}
}

// Len returns the number of rows.
func (t MilestoneTable) Len() int { return len(t.Rows) }

// Validate re-checks column presence before an engine touches the rows.
func (t MilestoneTable) Validate() error {
	if t.Columns == nil {
		return nil
	}
	return ValidateColumns(t.Columns)
}

// Column extracts a numeric column by name.
func (t MilestoneTable) Column(name string) ([]float64, error) {
	get, ok := numericGetters[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrInvalidColumn)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = get(r)
	}
	return out, nil
}

var numericGetters = map[string]func(Milestone) float64{
	ColTotalCigsAvoided: func(m Milestone) float64 { return m.TotalCigsAvoided },
	ColMoneySaved:       func(m Milestone) float64 { return m.MoneySaved },
	ColTotalCigsSmoked:  func(m Milestone) float64 { return m.TotalCigsSmoked },
	ColTotalDays:        func(m Milestone) float64 { return float64(m.TotalDays) },
	ColPoints:           func(m Milestone) float64 { return float64(m.Points) },
}

// Reward is one entry in the rewards wallet.
type Reward struct {
	UserID           string
	RewardType       string
	RedemptionStatus string
	Points           int
}

// Redemption statuses seen in the rewards wallet.
const (
	StatusRedeemed = "redeemed"
	StatusPending  = "pending"
)

// Notification is one scheduled reminder.
type Notification struct {
	UserID      string
	ScheduledAt time.Time
	Channel     string
	Message     string
	Status      string
}
