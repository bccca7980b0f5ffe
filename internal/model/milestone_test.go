package model

import (
	"errors"
	"testing"
)

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		missing int
	}{
		{"complete", MilestoneColumns, 0},
		{"padded", []string{" user_id", "total_cigs_avoided ", "money_saved", "total_cigs_smoked", "total_days", "points", "extra"}, 0},
		{"missing money", []string{"user_id", "total_cigs_avoided", "total_cigs_smoked", "total_days", "points"}, 1},
		{"empty", nil, len(MilestoneColumns)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumns(tt.header)
			if tt.missing == 0 {
				if err != nil {
					t.Fatalf("ValidateColumns: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidColumn) {
				t.Fatalf("err = %v, want ErrInvalidColumn", err)
			}
			var ce *ColumnError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T, want *ColumnError", err)
			}
			if len(ce.Missing) != tt.missing {
				t.Errorf("missing = %v, want %d columns", ce.Missing, tt.missing)
			}
		})
	}
}

func TestMilestoneTable_Column(t *testing.T) {
	tbl := NewMilestoneTable([]Milestone{
		{TotalCigsAvoided: 10, MoneySaved: 1.5, TotalDays: 3, Points: 7},
		{TotalCigsAvoided: 20, MoneySaved: 3, TotalDays: 6, Points: 9},
	})
	got, err := tbl.Column(ColPoints)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 7 || got[1] != 9 {
		t.Errorf("points = %v, want [7 9]", got)
	}
	if _, err := tbl.Column(ColUserID); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("non-numeric column: err = %v, want ErrInvalidColumn", err)
	}
}

func TestMilestoneTable_ValidateNilColumns(t *testing.T) {
	tbl := MilestoneTable{Rows: []Milestone{{UserID: "a"}}}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
