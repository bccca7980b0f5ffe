// Package source reads the breathsave CSV exports.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/model"
)

// Canonical file names inside the data directory.
const (
	MilestonesFile    = "breathsave_savings_milestones.csv"
	RewardsFile       = "breathsave_rewards_wallet.csv"
	NotificationsFile = "breathsave_notifications_schedule.csv"
)

// RowError reports a value that failed to parse.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s: bad value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// header maps column names to their index in a record.
type header map[string]int

func readHeader(cr *csv.Reader) (header, []string, error) {
	rec, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return header{}, nil, nil
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if len(rec) > 0 {
		rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
	}
	h := make(header, len(rec))
	cols := make([]string, len(rec))
	for i, name := range rec {
		name = strings.TrimSpace(name)
		cols[i] = name
		h[name] = i
	}
	return h, cols, nil
}

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// eachRecord calls fn for every data row with its 1-based file line.
func eachRecord(cr *csv.Reader, fn func(line int, rec []string) error) error {
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

// parseFloat reads a finite number from col. A blank cell is zero unless
// required is set.
func parseFloat(h header, rec []string, col string, line int, required bool) (float64, error) {
	s := h.get(rec, col)
	if s == "" {
		if required {
			return 0, &RowError{Line: line, Column: col, Value: s, Err: model.ErrInvalidColumn}
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &RowError{Line: line, Column: col, Value: s, Err: model.ErrInvalidColumn}
	}
	return v, nil
}

func parseInt(h header, rec []string, col string, line int, required bool) (int, error) {
	if v, err := strconv.Atoi(h.get(rec, col)); err == nil {
		return v, nil
	}
	// Exports sometimes write integral columns as "12.0".
	f, err := parseFloat(h, rec, col, line, required)
	return int(f), err
}

// ReadMilestones parses the savings milestones CSV. Every milestone column
// must be present in the header and every numeric cell must hold a finite
// number.
func ReadMilestones(r io.Reader) (model.MilestoneTable, error) {
	cr := newReader(r)
	h, cols, err := readHeader(cr)
	if err != nil {
		return model.MilestoneTable{}, err
	}
	if err := model.ValidateColumns(cols); err != nil {
		return model.MilestoneTable{}, err
	}

	var rows []model.Milestone
	err = eachRecord(cr, func(line int, rec []string) error {
		m := model.Milestone{UserID: h.get(rec, model.ColUserID)}
		var err error
		if m.TotalCigsAvoided, err = parseFloat(h, rec, model.ColTotalCigsAvoided, line, true); err != nil {
			return err
		}
		if m.MoneySaved, err = parseFloat(h, rec, model.ColMoneySaved, line, true); err != nil {
			return err
		}
		if m.TotalCigsSmoked, err = parseFloat(h, rec, model.ColTotalCigsSmoked, line, true); err != nil {
			return err
		}
		if m.TotalDays, err = parseInt(h, rec, model.ColTotalDays, line, true); err != nil {
			return err
		}
		if m.Points, err = parseInt(h, rec, model.ColPoints, line, true); err != nil {
			return err
		}
		rows = append(rows, m)
		return nil
	})
	if err != nil {
		return model.MilestoneTable{}, err
	}
	return model.MilestoneTable{Columns: cols, Rows: rows}, nil
}

// Reward wallet columns.
const (
	colRewardType       = "reward_type"
	colRedemptionStatus = "redemption_status"
	colRewardPoints     = "points"
)

// ReadRewards parses the rewards wallet CSV. reward_type and
// redemption_status are required; points is optional.
func ReadRewards(r io.Reader) ([]model.Reward, error) {
	cr := newReader(r)
	h, cols, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, nil
	}
	for _, c := range []string{colRewardType, colRedemptionStatus} {
		if !h.has(c) {
			return nil, fmt.Errorf("rewards column %q: %w", c, model.ErrInvalidColumn)
		}
	}

	var out []model.Reward
	err = eachRecord(cr, func(line int, rec []string) error {
		pts, err := parseInt(h, rec, colRewardPoints, line, false)
		if err != nil {
			return err
		}
		out = append(out, model.Reward{
			UserID:           h.get(rec, model.ColUserID),
			RewardType:       h.get(rec, colRewardType),
			RedemptionStatus: strings.ToLower(h.get(rec, colRedemptionStatus)),
			Points:           pts,
		})
		return nil
	})
	return out, err
}

// Notification schedule columns. The timestamp column has appeared under
// two names across exports.
var scheduleColumns = []string{"scheduled_time", "scheduled_at"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp layouts seen in schedule exports.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadNotifications parses the notification schedule CSV.
func ReadNotifications(r io.Reader) ([]model.Notification, error) {
	cr := newReader(r)
	h, cols, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, nil
	}
	tsCol := ""
	for _, c := range scheduleColumns {
		if h.has(c) {
			tsCol = c
			break
		}
	}

	var out []model.Notification
	err = eachRecord(cr, func(line int, rec []string) error {
		n := model.Notification{
			UserID:  h.get(rec, model.ColUserID),
			Channel: h.get(rec, "channel"),
			Message: h.get(rec, "message"),
			Status:  h.get(rec, "status"),
		}
		if tsCol != "" {
			if s := h.get(rec, tsCol); s != "" {
				ts, err := ParseTimestamp(s)
				if err != nil {
					return &RowError{Line: line, Column: tsCol, Value: s, Err: err}
				}
				n.ScheduledAt = ts
			}
		}
		out = append(out, n)
		return nil
	})
	return out, err
}
