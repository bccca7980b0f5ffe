package pipeline

import (
	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/predict"
	"github.com/breathsave/breathsave/internal/segment"
)

// Analysis bundles every engine output for one dataset. Engine failures are
// recorded per engine so a front end can render what succeeded.
type Analysis struct {
	Overview   model.OverviewStats
	ClusterIDs []int
	Clusters   []model.ClusterStats
	SegmentErr error

	Model      *predict.Model
	Metrics    model.RegressionMetrics
	PredictErr error

	Rewards      model.RewardStats
	Correlations model.CorrelationMatrix
}

// Analyze runs segmentation, regression, and the presentation aggregates.
func Analyze(ds *Dataset, seg *segment.Segmenter) *Analysis {
	a := &Analysis{
		Overview: Overview(ds.Milestones),
		Rewards:  RewardSummary(ds.Milestones, ds.Rewards),
	}
	a.Correlations, _ = Correlations(ds.Milestones)

	if ids, err := seg.Segment(ds.Milestones); err != nil {
		a.SegmentErr = err
	} else {
		a.ClusterIDs = ids
		a.Clusters, a.SegmentErr = seg.Statistics(ds.Milestones, ids)
	}

	if m, err := predict.Fit(ds.Milestones); err != nil {
		a.PredictErr = err
	} else {
		a.Model = m
		a.Metrics, a.PredictErr = m.Metrics()
	}
	return a
}
