// Package store provides a SQLite-backed cache for parsed CSV data and a
// separate SQLite credential database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/breathsave/breathsave/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed dataset caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	db, err := openDB(dbPath, schemaSQL)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{db: db}, nil
}

func openDB(dbPath, schema string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// replaceFile runs fn inside a transaction after clearing table rows for path,
// then records the file's tracking info.
func (c *Cache) replaceFile(table, path string, fi FileInfo, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// table is one of the package's own constants.
	if _, err := tx.Exec("DELETE FROM "+table+" WHERE file_path = ?", path); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?)`, path, fi.MtimeNs, fi.SizeBytes)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SaveMilestones replaces the cached rows for path.
func (c *Cache) SaveMilestones(path string, rows []model.Milestone, fi FileInfo) error {
	return c.replaceFile("milestones", path, fi, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO milestones
			(file_path, row_num, user_id, total_cigs_avoided, money_saved,
			 total_cigs_smoked, total_days, points)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i, m := range rows {
			if _, err := stmt.Exec(path, i, m.UserID, m.TotalCigsAvoided, m.MoneySaved,
				m.TotalCigsSmoked, m.TotalDays, m.Points); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadMilestones reads the cached rows for path in file order.
func (c *Cache) LoadMilestones(path string) (model.MilestoneTable, error) {
	rows, err := c.db.Query(`SELECT user_id, total_cigs_avoided, money_saved,
		total_cigs_smoked, total_days, points
		FROM milestones WHERE file_path = ? ORDER BY row_num`, path)
	if err != nil {
		return model.MilestoneTable{}, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(&m.UserID, &m.TotalCigsAvoided, &m.MoneySaved,
			&m.TotalCigsSmoked, &m.TotalDays, &m.Points); err != nil {
			return model.MilestoneTable{}, err
		}
		out = append(out, m)
	}
	return model.NewMilestoneTable(out), rows.Err()
}

// SaveRewards replaces the cached reward rows for path.
func (c *Cache) SaveRewards(path string, rows []model.Reward, fi FileInfo) error {
	return c.replaceFile("rewards", path, fi, func(tx *sql.Tx) error {
		for i, r := range rows {
			_, err := tx.Exec(`INSERT INTO rewards
				(file_path, row_num, user_id, reward_type, redemption_status, points)
				VALUES (?, ?, ?, ?, ?, ?)`,
				path, i, r.UserID, r.RewardType, r.RedemptionStatus, r.Points)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRewards reads the cached reward rows for path.
func (c *Cache) LoadRewards(path string) ([]model.Reward, error) {
	rows, err := c.db.Query(`SELECT user_id, reward_type, redemption_status, points
		FROM rewards WHERE file_path = ? ORDER BY row_num`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Reward
	for rows.Next() {
		var r model.Reward
		if err := rows.Scan(&r.UserID, &r.RewardType, &r.RedemptionStatus, &r.Points); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveNotifications replaces the cached notification rows for path.
func (c *Cache) SaveNotifications(path string, rows []model.Notification, fi FileInfo) error {
	return c.replaceFile("notifications", path, fi, func(tx *sql.Tx) error {
		for i, n := range rows {
			at := ""
			if !n.ScheduledAt.IsZero() {
				at = n.ScheduledAt.UTC().Format(time.RFC3339)
			}
			_, err := tx.Exec(`INSERT INTO notifications
				(file_path, row_num, user_id, scheduled_at, channel, message, status)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				path, i, n.UserID, at, n.Channel, n.Message, n.Status)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadNotifications reads the cached notification rows for path.
func (c *Cache) LoadNotifications(path string) ([]model.Notification, error) {
	rows, err := c.db.Query(`SELECT user_id, scheduled_at, channel, message, status
		FROM notifications WHERE file_path = ? ORDER BY row_num`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var at, channel, msg, status sql.NullString
		if err := rows.Scan(&n.UserID, &at, &channel, &msg, &status); err != nil {
			return nil, err
		}
		if at.Valid && at.String != "" {
			n.ScheduledAt, _ = time.Parse(time.RFC3339, at.String)
		}
		n.Channel, n.Message, n.Status = channel.String, msg.String, status.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteFile removes every cached row and the tracker entry for path.
func (c *Cache) DeleteFile(path string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{
		"DELETE FROM milestones WHERE file_path = ?",
		"DELETE FROM rewards WHERE file_path = ?",
		"DELETE FROM notifications WHERE file_path = ?",
		"DELETE FROM file_tracker WHERE file_path = ?",
	} {
		if _, err := tx.Exec(stmt, path); err != nil {
			return err
		}
	}
	return tx.Commit()
}
