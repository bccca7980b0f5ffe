package segment

import (
	"errors"
	"math"
	"testing"

	"github.com/breathsave/breathsave/internal/model"
)

// blobTable builds three well-separated groups of size n each.
func blobTable(n int) model.MilestoneTable {
	centers := []struct{ avoided, saved, smoked float64 }{
		{2000, 300, 20},
		{900, 135, 150},
		{80, 12, 600},
	}
	var rows []model.Milestone
	for g, c := range centers {
		for i := 0; i < n; i++ {
			off := float64(i%5) - 2
			rows = append(rows, model.Milestone{
				UserID:           string(rune('A'+g)) + string(rune('a'+i)),
				TotalCigsAvoided: c.avoided + off*10,
				MoneySaved:       c.saved + off*1.5,
				TotalCigsSmoked:  c.smoked + off*3,
				TotalDays:        30,
				Points:           100,
			})
		}
	}
	return model.NewMilestoneTable(rows)
}

func TestStandardize_MeanZeroStdOne(t *testing.T) {
	x := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 35, 5},
		{10, 41, 5},
	}
	scaled := Standardize(x)

	for j := 0; j < 2; j++ {
		var sum, sq float64
		for _, row := range scaled {
			sum += row[j]
		}
		mean := sum / float64(len(scaled))
		for _, row := range scaled {
			sq += (row[j] - mean) * (row[j] - mean)
		}
		std := math.Sqrt(sq / float64(len(scaled)))
		if math.Abs(mean) > 1e-12 {
			t.Errorf("column %d mean = %g, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-12 {
			t.Errorf("column %d std = %g, want 1", j, std)
		}
	}
}

func TestStandardize_ConstantColumnMapsToZero(t *testing.T) {
	x := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	scaled := Standardize(x)
	for i, row := range scaled {
		if row[1] != 0 {
			t.Errorf("row %d constant column = %g, want 0", i, row[1])
		}
		if math.IsNaN(row[0]) {
			t.Errorf("row %d produced NaN", i)
		}
	}
}

func TestSegment_OneIDPerRow(t *testing.T) {
	table := blobTable(10)
	ids, err := New(DefaultConfig()).Segment(table)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(ids) != table.Len() {
		t.Fatalf("len(ids) = %d, want %d", len(ids), table.Len())
	}
	for i, id := range ids {
		if id < 0 || id > 2 {
			t.Fatalf("ids[%d] = %d, want 0..2", i, id)
		}
	}
}

func TestSegment_SeparatesBlobs(t *testing.T) {
	const n = 10
	ids, err := New(DefaultConfig()).Segment(blobTable(n))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	groupID := make([]int, 3)
	for g := 0; g < 3; g++ {
		groupID[g] = ids[g*n]
		for i := 0; i < n; i++ {
			if ids[g*n+i] != groupID[g] {
				t.Fatalf("blob %d split across clusters: %v", g, ids[g*n:(g+1)*n])
			}
		}
	}
	if groupID[0] == groupID[1] || groupID[1] == groupID[2] || groupID[0] == groupID[2] {
		t.Fatalf("blobs merged: cluster ids %v", groupID)
	}
}

func TestSegment_Deterministic(t *testing.T) {
	table := blobTable(8)
	s := New(DefaultConfig())
	first, err := s.Segment(table)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Segment(table)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run mismatch at row %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestSegment_ThreeDistinctRows(t *testing.T) {
	table := model.NewMilestoneTable([]model.Milestone{
		{UserID: "a", TotalCigsAvoided: 10, MoneySaved: 1, TotalCigsSmoked: 100},
		{UserID: "b", TotalCigsAvoided: 500, MoneySaved: 80, TotalCigsSmoked: 40},
		{UserID: "c", TotalCigsAvoided: 2000, MoneySaved: 300, TotalCigsSmoked: 5},
	})
	ids, err := New(DefaultConfig()).Segment(table)
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
		t.Fatalf("ids = %v, want three distinct clusters", ids)
	}
}

func TestSegment_InsufficientData(t *testing.T) {
	table := model.NewMilestoneTable([]model.Milestone{
		{UserID: "a", TotalCigsAvoided: 1, MoneySaved: 1, TotalCigsSmoked: 1},
		{UserID: "b", TotalCigsAvoided: 2, MoneySaved: 2, TotalCigsSmoked: 2},
	})
	_, err := New(DefaultConfig()).Segment(table)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestSegment_DegenerateFeatures(t *testing.T) {
	rows := make([]model.Milestone, 5)
	for i := range rows {
		rows[i] = model.Milestone{UserID: "u", TotalCigsAvoided: 100, MoneySaved: 15, TotalCigsSmoked: 3, Points: i}
	}
	_, err := New(DefaultConfig()).Segment(model.NewMilestoneTable(rows))
	if !errors.Is(err, ErrDegenerateFeatures) {
		t.Fatalf("err = %v, want ErrDegenerateFeatures", err)
	}
}

func TestSegment_OneVaryingFeatureIsEnough(t *testing.T) {
	rows := make([]model.Milestone, 6)
	for i := range rows {
		rows[i] = model.Milestone{TotalCigsAvoided: 100, MoneySaved: float64(i * i * 10), TotalCigsSmoked: 3}
	}
	ids, err := New(DefaultConfig()).Segment(model.NewMilestoneTable(rows))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(ids) != 6 {
		t.Fatalf("len(ids) = %d, want 6", len(ids))
	}
}

func TestSegment_MissingColumn(t *testing.T) {
	table := blobTable(3)
	table.Columns = []string{model.ColUserID, model.ColTotalCigsAvoided}
	_, err := New(DefaultConfig()).Segment(table)
	if !errors.Is(err, model.ErrInvalidColumn) {
		t.Fatalf("err = %v, want ErrInvalidColumn", err)
	}
}

func TestSegment_RankBySavings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RankBySavings = true
	table := blobTable(6)
	ids, err := New(cfg).Segment(table)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := Statistics(table, ids, 3)
	if err != nil {
		t.Fatal(err)
	}
	for j := 1; j < len(stats); j++ {
		if stats[j].AvgSavings > stats[j-1].AvgSavings {
			t.Fatalf("cluster %d avg savings %.2f > cluster %d %.2f", j, stats[j].AvgSavings, j-1, stats[j-1].AvgSavings)
		}
	}
	if stats[0].Name != "High Achievers" {
		t.Fatalf("stats[0].Name = %q", stats[0].Name)
	}
}

func TestClusterStatistics_AllClustersPresent(t *testing.T) {
	table := model.NewMilestoneTable([]model.Milestone{
		{TotalCigsAvoided: 100, MoneySaved: 10, TotalCigsSmoked: 4},
		{TotalCigsAvoided: 300, MoneySaved: 30, TotalCigsSmoked: 8},
		{TotalCigsAvoided: 200, MoneySaved: 20, TotalCigsSmoked: 6},
	})
	stats, err := ClusterStatistics(table, []int{0, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3", len(stats))
	}

	total := 0
	for _, name := range ClusterNames {
		cs, ok := stats[name]
		if !ok {
			t.Fatalf("missing cluster %q", name)
		}
		total += cs.Users
	}
	if total != table.Len() {
		t.Fatalf("counts sum to %d, want %d", total, table.Len())
	}

	ha := stats["High Achievers"]
	if ha.AvgSavings != 20 || ha.AvgCigsAvoided != 200 || ha.AvgCigsSmoked != 6 {
		t.Errorf("High Achievers = %+v", ha)
	}
	if nm := stats["New Members"]; nm.Users != 0 || nm.AvgSavings != 0 {
		t.Errorf("empty cluster = %+v, want zero values", nm)
	}
}

func TestClusterStatistics_Mismatch(t *testing.T) {
	table := blobTable(2)
	if _, err := Statistics(table, []int{0, 1}, 3); !errors.Is(err, ErrAssignmentMismatch) {
		t.Fatalf("short ids: err = %v, want ErrAssignmentMismatch", err)
	}
	ids := make([]int, table.Len())
	ids[0] = 7
	if _, err := Statistics(table, ids, 3); !errors.Is(err, ErrAssignmentMismatch) {
		t.Fatalf("out of range id: err = %v, want ErrAssignmentMismatch", err)
	}
}

func TestClusterName_Fallback(t *testing.T) {
	if got := ClusterName(4); got != "Segment 5" {
		t.Fatalf("ClusterName(4) = %q, want Segment 5", got)
	}
}
