package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/source"
	"github.com/breathsave/breathsave/internal/store"
)

// ErrDataNotFound is returned when the milestones file is absent.
var ErrDataNotFound = errors.New("milestones data not found")

// Dataset is one loaded snapshot of the data directory. Callers own it and
// pass it to the engines explicitly; it is not modified after loading.
type Dataset struct {
	Dir           string
	Milestones    model.MilestoneTable
	Rewards       []model.Reward
	Notifications []model.Notification
	LoadedAt      time.Time
	Stats         LoadStats
}

// LoadStats describes how a dataset was assembled.
type LoadStats struct {
	TotalFiles   int
	ParsedFiles  int
	MissingFiles []string // optional files that were absent
	CacheHits    int
	Reparsed     int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

type fileKind int

const (
	kindMilestones fileKind = iota
	kindRewards
	kindNotifications
)

var dataFiles = []struct {
	kind     fileKind
	name     string
	required bool
}{
	{kindMilestones, source.MilestonesFile, true},
	{kindRewards, source.RewardsFile, false},
	{kindNotifications, source.NotificationsFile, false},
}

// parsed is the output of reading one data file.
type parsed struct {
	kind          fileKind
	path          string
	info          os.FileInfo
	milestones    model.MilestoneTable
	rewards       []model.Reward
	notifications []model.Notification
	err           error
}

// job is one data file found on disk.
type job struct {
	kind fileKind
	path string
	info os.FileInfo
}

// DataPath returns the path of a named file inside dataDir.
func DataPath(dataDir, name string) string {
	return filepath.Join(dataDir, name)
}

// discover stats every data file. A missing required file is an error;
// missing optional files are reported by name.
func discover(dataDir string) ([]job, []string, error) {
	var jobs []job
	var missing []string
	for _, f := range dataFiles {
		path := DataPath(dataDir, f.name)
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("checking %s: %w", path, err)
			}
			if f.required {
				return nil, nil, fmt.Errorf("%s: %w", path, ErrDataNotFound)
			}
			missing = append(missing, f.name)
			continue
		}
		jobs = append(jobs, job{kind: f.kind, path: path, info: info})
	}
	return jobs, missing, nil
}

func parseFile(j job) parsed {
	p := parsed{kind: j.kind, path: j.path, info: j.info}
	f, err := os.Open(j.path)
	if err != nil {
		p.err = err
		return p
	}
	defer func() { _ = f.Close() }()

	switch j.kind {
	case kindMilestones:
		p.milestones, p.err = source.ReadMilestones(f)
	case kindRewards:
		p.rewards, p.err = source.ReadRewards(f)
	case kindNotifications:
		p.notifications, p.err = source.ReadNotifications(f)
	}
	if p.err != nil {
		p.err = fmt.Errorf("parsing %s: %w", filepath.Base(j.path), p.err)
	}
	return p
}

// parseAll runs parseFile over jobs with a bounded worker pool.
// offset is added to the progress count for files already satisfied.
func parseAll(jobs []job, offset, total int, progressFn ProgressFunc) []parsed {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	work := make(chan int, len(jobs))
	results := make([]parsed, len(jobs))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range jobs {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = parseFile(jobs[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+offset, total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// apply copies a parsed file into ds. Any parse error is fatal for the load.
func (ds *Dataset) apply(p parsed) error {
	if p.err != nil {
		return p.err
	}
	switch p.kind {
	case kindMilestones:
		ds.Milestones = p.milestones
	case kindRewards:
		ds.Rewards = p.rewards
	case kindNotifications:
		ds.Notifications = p.notifications
	}
	ds.Stats.ParsedFiles++
	return nil
}

// Load reads every data file in dataDir in parallel.
func Load(dataDir string, progressFn ProgressFunc) (*Dataset, error) {
	jobs, missing, err := discover(dataDir)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Dir:      dataDir,
		LoadedAt: time.Now(),
		Stats:    LoadStats{TotalFiles: len(jobs), MissingFiles: missing, Reparsed: len(jobs)},
	}
	for _, p := range parseAll(jobs, 0, len(jobs), progressFn) {
		if err := ds.apply(p); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// LoadWithCache is Load, but files whose mtime and size match the cache
// are read from SQLite instead of being reparsed. Cached rows of optional
// files that have since disappeared are dropped.
func LoadWithCache(dataDir string, cache *store.Cache, progressFn ProgressFunc) (*Dataset, error) {
	jobs, missing, err := discover(dataDir)
	if err != nil {
		return nil, err
	}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	for _, name := range missing {
		path := DataPath(dataDir, name)
		if _, ok := tracked[path]; ok {
			if err := cache.DeleteFile(path); err != nil {
				return nil, fmt.Errorf("pruning cache for %s: %w", name, err)
			}
		}
	}

	ds := &Dataset{
		Dir:      dataDir,
		LoadedAt: time.Now(),
		Stats:    LoadStats{TotalFiles: len(jobs), MissingFiles: missing},
	}

	var toReparse []job
	for _, j := range jobs {
		cached, ok := tracked[j.path]
		if !ok || cached.MtimeNs != j.info.ModTime().UnixNano() || cached.SizeBytes != j.info.Size() {
			toReparse = append(toReparse, j)
			continue
		}
		p, err := loadCached(cache, j)
		if err != nil {
			return nil, fmt.Errorf("loading cached %s: %w", filepath.Base(j.path), err)
		}
		if err := ds.apply(p); err != nil {
			return nil, err
		}
		ds.Stats.CacheHits++
		if progressFn != nil {
			progressFn(ds.Stats.CacheHits, ds.Stats.TotalFiles)
		}
	}

	ds.Stats.Reparsed = len(toReparse)
	if len(toReparse) == 0 {
		return ds, nil
	}

	for _, p := range parseAll(toReparse, ds.Stats.CacheHits, ds.Stats.TotalFiles, progressFn) {
		if err := ds.apply(p); err != nil {
			return nil, err
		}
		// A failed cache write only costs a reparse next time.
		_ = saveCached(cache, p)
	}
	return ds, nil
}

func loadCached(cache *store.Cache, j job) (parsed, error) {
	p := parsed{kind: j.kind, path: j.path, info: j.info}
	var err error
	switch j.kind {
	case kindMilestones:
		p.milestones, err = cache.LoadMilestones(j.path)
	case kindRewards:
		p.rewards, err = cache.LoadRewards(j.path)
	case kindNotifications:
		p.notifications, err = cache.LoadNotifications(j.path)
	}
	return p, err
}

func saveCached(cache *store.Cache, p parsed) error {
	fi := store.FileInfo{MtimeNs: p.info.ModTime().UnixNano(), SizeBytes: p.info.Size()}
	switch p.kind {
	case kindMilestones:
		return cache.SaveMilestones(p.path, p.milestones.Rows, fi)
	case kindRewards:
		return cache.SaveRewards(p.path, p.rewards, fi)
	case kindNotifications:
		return cache.SaveNotifications(p.path, p.notifications, fi)
	}
	return nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "breathsave")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "breathsave")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "breathsave.db")
}
