// Package segment clusters users into behavioral groups with k-means over
// standardized milestone features.
package segment

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/breathsave/breathsave/internal/model"
)

var (
	// ErrInsufficientData is returned when there are fewer rows than clusters.
	ErrInsufficientData = errors.New("insufficient data for clustering")
	// ErrDegenerateFeatures is returned when every feature is constant.
	ErrDegenerateFeatures = errors.New("no feature variance to cluster on")
	// ErrAssignmentMismatch is returned when cluster ids do not line up with the table.
	ErrAssignmentMismatch = errors.New("cluster assignment does not match table")
)

// Features are the milestone columns clustering runs on, in order.
var Features = []string{
	model.ColTotalCigsAvoided,
	model.ColMoneySaved,
	model.ColTotalCigsSmoked,
}

// ClusterNames binds display names to cluster ids by position. Nothing in
// k-means guarantees id 0 holds the strongest savers unless RankBySavings is set.
var ClusterNames = []string{"High Achievers", "Steady Performers", "New Members"}

// ClusterName returns the display name for a cluster id.
func ClusterName(id int) string {
	if id >= 0 && id < len(ClusterNames) {
		return ClusterNames[id]
	}
	return fmt.Sprintf("Segment %d", id+1)
}

// Config holds the fixed hyperparameters of a Segmenter.
type Config struct {
	Clusters      int
	Seed          uint64
	Restarts      int
	MaxIter       int
	Tol           float64
	RankBySavings bool
}

// DefaultConfig returns three clusters, seed 42 and ten restarts.
func DefaultConfig() Config {
	return Config{
		Clusters: 3,
		Seed:     42,
		Restarts: 10,
		MaxIter:  300,
		Tol:      1e-4,
	}
}

// Segmenter partitions a milestone table into Config.Clusters groups.
// It holds no state between calls.
type Segmenter struct {
	cfg Config
}

// New returns a Segmenter, filling unset or out-of-range fields from DefaultConfig.
func New(cfg Config) *Segmenter {
	def := DefaultConfig()
	if cfg.Clusters < 1 {
		cfg.Clusters = def.Clusters
	}
	if cfg.Restarts < def.Restarts {
		cfg.Restarts = def.Restarts
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Tol <= 0 {
		cfg.Tol = def.Tol
	}
	return &Segmenter{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Segmenter) Config() Config { return s.cfg }

// Result is the outcome of one Run.
type Result struct {
	Labels     []int
	Centroids  [][]float64 // in standardized feature space
	Inertia    float64
	Iterations int
	Scaler     Scaler
}

// Segment returns one cluster id per row, each in [0, Clusters).
func (s *Segmenter) Segment(table model.MilestoneTable) ([]int, error) {
	res, err := s.Run(table)
	if err != nil {
		return nil, err
	}
	return res.Labels, nil
}

// Run clusters the table and returns labels with diagnostics.
func (s *Segmenter) Run(table model.MilestoneTable) (Result, error) {
	if err := table.Validate(); err != nil {
		return Result{}, fmt.Errorf("segmenting: %w", err)
	}
	k := s.cfg.Clusters
	if table.Len() < k {
		return Result{}, fmt.Errorf("segmenting %d rows into %d clusters: %w", table.Len(), k, ErrInsufficientData)
	}

	x, err := featureMatrix(table)
	if err != nil {
		return Result{}, fmt.Errorf("segmenting: %w", err)
	}

	scaler := FitScaler(x)
	degenerate := true
	for j := range Features {
		if !scaler.Constant(j) {
			degenerate = false
			break
		}
	}
	if degenerate {
		return Result{}, fmt.Errorf("segmenting: %w", ErrDegenerateFeatures)
	}
	scaled := scaler.Transform(x)

	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x9e3779b97f4a7c15))
	var best kmeansRun
	for r := 0; r < s.cfg.Restarts; r++ {
		run := kmeans(scaled, k, rng, s.cfg.MaxIter, s.cfg.Tol)
		if r == 0 || run.inertia < best.inertia {
			best = run
		}
	}

	if s.cfg.RankBySavings {
		rankBySavings(table, best.labels, best.centroids)
	}

	return Result{
		Labels:     best.labels,
		Centroids:  best.centroids,
		Inertia:    best.inertia,
		Iterations: best.iters,
		Scaler:     scaler,
	}, nil
}

func featureMatrix(table model.MilestoneTable) ([][]float64, error) {
	cols := make([][]float64, len(Features))
	for j, name := range Features {
		c, err := table.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	x := make([][]float64, table.Len())
	for i := range x {
		row := make([]float64, len(Features))
		for j := range Features {
			row[j] = cols[j][i]
		}
		x[i] = row
	}
	return x, nil
}

// rankBySavings relabels clusters in place so id 0 has the highest mean
// money_saved. Ties keep their original relative order.
func rankBySavings(table model.MilestoneTable, labels []int, centroids [][]float64) {
	k := len(centroids)
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, l := range labels {
		sums[l] += table.Rows[i].MoneySaved
		counts[l]++
	}
	order := make([]int, k)
	for j := range order {
		order[j] = j
	}
	mean := func(j int) float64 {
		if counts[j] == 0 {
			return 0
		}
		return sums[j] / float64(counts[j])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return mean(order[a]) > mean(order[b])
	})

	remap := make([]int, k)
	reordered := make([][]float64, k)
	for newID, oldID := range order {
		remap[oldID] = newID
		reordered[newID] = centroids[oldID]
	}
	for i, l := range labels {
		labels[i] = remap[l]
	}
	copy(centroids, reordered)
}

// ClusterStatistics returns per-cluster counts and averages keyed by display
// name. Every cluster id in [0, k) appears, including empty ones.
func ClusterStatistics(table model.MilestoneTable, ids []int, k int) (map[string]model.ClusterStats, error) {
	ordered, err := Statistics(table, ids, k)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.ClusterStats, len(ordered))
	for _, cs := range ordered {
		out[cs.Name] = cs
	}
	return out, nil
}

// Statistics is ClusterStatistics ordered by cluster id.
func Statistics(table model.MilestoneTable, ids []int, k int) ([]model.ClusterStats, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("cluster statistics: %w", err)
	}
	if len(ids) != table.Len() {
		return nil, fmt.Errorf("cluster statistics: %d ids for %d rows: %w", len(ids), table.Len(), ErrAssignmentMismatch)
	}

	stats := make([]model.ClusterStats, k)
	for j := range stats {
		stats[j] = model.ClusterStats{ID: j, Name: ClusterName(j)}
	}
	for i, id := range ids {
		if id < 0 || id >= k {
			return nil, fmt.Errorf("cluster statistics: row %d has id %d outside [0,%d): %w", i, id, k, ErrAssignmentMismatch)
		}
		r := table.Rows[i]
		cs := &stats[id]
		cs.Users++
		cs.AvgSavings += r.MoneySaved
		cs.AvgCigsAvoided += r.TotalCigsAvoided
		cs.AvgCigsSmoked += r.TotalCigsSmoked
	}
	for j := range stats {
		cs := &stats[j]
		if cs.Users == 0 {
			continue
		}
		n := float64(cs.Users)
		cs.AvgSavings /= n
		cs.AvgCigsAvoided /= n
		cs.AvgCigsSmoked /= n
	}
	return stats, nil
}

// Statistics computes per-cluster statistics using the segmenter's cluster count.
func (s *Segmenter) Statistics(table model.MilestoneTable, ids []int) ([]model.ClusterStats, error) {
	return Statistics(table, ids, s.cfg.Clusters)
}
