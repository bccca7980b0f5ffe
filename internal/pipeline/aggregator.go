// Package pipeline loads the breathsave data directory and computes the
// dashboard aggregates over it.
package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/model"
)

// Dashboard defaults.
const (
	HistogramBins = 40
	TopSavers     = 15
	TopEarners    = 10
)

// Overview computes the headline community numbers.
func Overview(table model.MilestoneTable) model.OverviewStats {
	var stats model.OverviewStats
	stats.TotalUsers = table.Len()
	if stats.TotalUsers == 0 {
		return stats
	}

	var days float64
	for _, m := range table.Rows {
		stats.TotalCigsAvoided += m.TotalCigsAvoided
		stats.TotalSavings += m.MoneySaved
		days += float64(m.TotalDays)
	}
	n := float64(stats.TotalUsers)
	stats.AvgCigsAvoided = stats.TotalCigsAvoided / n
	stats.AvgDays = days / n
	return stats
}

// TopN returns up to n rows with the largest value in column by, largest
// first. Ties keep file order.
func TopN(table model.MilestoneTable, n int, by string) ([]model.Milestone, error) {
	vals, err := table.Column(by)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] > vals[idx[b]]
	})
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]model.Milestone, 0, max(n, 0))
	for _, i := range idx[:max(n, 0)] {
		out = append(out, table.Rows[i])
	}
	return out, nil
}

// Histogram splits values into bins equal-width buckets spanning their range.
// The last bucket is closed on the right.
func Histogram(values []float64, bins int) []model.HistogramBin {
	if len(values) == 0 || bins < 1 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		// Degenerate range: a single unit-wide bucket around the value.
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	out := make([]model.HistogramBin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, v := range values {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		out[b].Count++
	}
	return out
}

// HistogramCounts returns only the bucket counts as floats, for sparklines.
func HistogramCounts(bins []model.HistogramBin) []float64 {
	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = float64(b.Count)
	}
	return out
}

// CorrelationColumns are the columns of the analytics correlation matrix.
var CorrelationColumns = []string{
	model.ColTotalCigsAvoided,
	model.ColMoneySaved,
	model.ColTotalCigsSmoked,
	model.ColPoints,
}

// Correlations computes the Pearson matrix over CorrelationColumns.
// A constant column correlates 0 with the others and 1 with itself.
func Correlations(table model.MilestoneTable) (model.CorrelationMatrix, error) {
	cols := make([][]float64, len(CorrelationColumns))
	for i, name := range CorrelationColumns {
		c, err := table.Column(name)
		if err != nil {
			return model.CorrelationMatrix{}, err
		}
		cols[i] = c
	}

	m := model.CorrelationMatrix{
		Labels: append([]string(nil), CorrelationColumns...),
		Values: make([][]float64, len(cols)),
	}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
		for j := range cols {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			m.Values[i][j] = pearson(cols[i], cols[j])
		}
	}
	return m, nil
}

func pearson(a, b []float64) float64 {
	if len(a) < 2 {
		return 0
	}
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	n := float64(len(a))
	ma, mb = ma/n, mb/n

	var sab, saa, sbb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		sab += da * db
		saa += da * da
		sbb += db * db
	}
	if saa == 0 || sbb == 0 {
		return 0
	}
	return sab / math.Sqrt(saa*sbb)
}

// RewardSummary combines milestone points with the rewards wallet.
func RewardSummary(table model.MilestoneTable, rewards []model.Reward) model.RewardStats {
	var stats model.RewardStats
	for _, m := range table.Rows {
		stats.TotalPoints += int64(m.Points)
	}
	if table.Len() > 0 {
		stats.AvgPoints = float64(stats.TotalPoints) / float64(table.Len())
	}

	types := make(map[string]int)
	statuses := make(map[string]int)
	for _, r := range rewards {
		switch r.RedemptionStatus {
		case model.StatusRedeemed:
			stats.Redeemed++
		case model.StatusPending:
			stats.Pending++
		}
		types[r.RewardType]++
		statuses[r.RedemptionStatus]++
	}
	stats.TotalRewards = len(rewards)
	stats.TypeCounts = sortedCounts(types)
	stats.StatusCounts = sortedCounts(statuses)
	return stats
}

// sortedCounts orders labels by count descending, then label.
func sortedCounts(m map[string]int) []model.TypeCount {
	out := make([]model.TypeCount, 0, len(m))
	for k, v := range m {
		out = append(out, model.TypeCount{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// NotificationChannels counts scheduled notifications per channel.
func NotificationChannels(notes []model.Notification) []model.TypeCount {
	m := make(map[string]int)
	for _, n := range notes {
		ch := n.Channel
		if ch == "" {
			ch = "unknown"
		}
		m[ch]++
	}
	return sortedCounts(m)
}

// NotificationsByDay counts notifications per local calendar day, most
// recent first. Rows without a timestamp are skipped.
func NotificationsByDay(notes []model.Notification) []model.DailyCount {
	dayMap := make(map[string]*model.DailyCount)
	for _, n := range notes {
		if n.ScheduledAt.IsZero() {
			continue
		}
		key := n.ScheduledAt.Local().Format("2006-01-02")
		dc, ok := dayMap[key]
		if !ok {
			t, _ := time.ParseInLocation("2006-01-02", key, time.Local)
			dc = &model.DailyCount{Date: t}
			dayMap[key] = dc
		}
		dc.Count++
	}

	days := make([]model.DailyCount, 0, len(dayMap))
	for _, dc := range dayMap {
		days = append(days, *dc)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// FilterByUser returns rows whose user id contains the substring, ignoring case.
func FilterByUser(table model.MilestoneTable, user string) model.MilestoneTable {
	if user == "" {
		return table
	}
	out := model.MilestoneTable{Columns: table.Columns}
	for _, m := range table.Rows {
		if strings.Contains(strings.ToLower(m.UserID), strings.ToLower(user)) {
			out.Rows = append(out.Rows, m)
		}
	}
	return out
}
