// Package daemon serves breathsave analytics over HTTP and keeps them fresh
// as the data directory changes.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/segment"
	"github.com/breathsave/breathsave/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir      string
	UseCache     bool
	CachePath    string
	Addr         string
	Schedule     string // cron spec for periodic reloads, empty disables
	Watch        bool   // reload when files in DataDir change
	EventsBuffer int
	Segmentation segment.Config
	RangeMax     float64 // 0 uses the largest cigarettes avoided in the data
	RangePoints  int
	Logger       *slog.Logger
}

// Snapshot is a compact dataset state for status/event payloads.
type Snapshot struct {
	At               time.Time `json:"at"`
	Users            int       `json:"users"`
	TotalSavings     float64   `json:"total_savings"`
	TotalCigsAvoided float64   `json:"total_cigs_avoided"`
	AvgDays          float64   `json:"avg_days"`
	Coefficient      float64   `json:"coefficient"`
	R2               float64   `json:"r2_score"`
	Rewards          int       `json:"rewards"`
}

// Delta captures snapshot deltas between reloads.
type Delta struct {
	Users            int     `json:"users"`
	TotalSavings     float64 `json:"total_savings"`
	TotalCigsAvoided float64 `json:"total_cigs_avoided"`
	Rewards          int     `json:"rewards"`
}

func (d Delta) isZero() bool {
	return d.Users == 0 &&
		d.TotalSavings == 0 &&
		d.TotalCigsAvoided == 0 &&
		d.Rewards == 0
}

// Event is emitted whenever the dataset snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot       = "snapshot"
	EventDatasetChanged = "dataset_changed"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastLoadAt      time.Time `json:"last_load_at"`
	LoadCount       int64     `json:"load_count"`
	DataDir         string    `json:"data_dir"`
	Schedule        string    `json:"schedule,omitempty"`
	Watching        bool      `json:"watching"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	seg *segment.Segmenter
	log *slog.Logger

	reloadMu sync.Mutex // serializes reloads from cron, watcher, and startup

	mu          sync.RWMutex
	startedAt   time.Time
	lastLoadAt  time.Time
	loadCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	analysis    *pipeline.Analysis
	nextEventID int64
	events      []Event
	watching    bool

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8417"
	}
	if cfg.RangePoints < 2 {
		cfg.RangePoints = 100
	}
	if cfg.Segmentation.Clusters == 0 {
		cfg.Segmentation = segment.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return &Service{
		cfg:       cfg,
		seg:       segment.New(cfg.Segmentation),
		log:       cfg.Logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints, the reload schedule, and the file watcher
// until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var sched cron.Schedule
	if s.cfg.Schedule != "" {
		var err error
		sched, err = cron.ParseStandard(s.cfg.Schedule)
		if err != nil {
			return fmt.Errorf("parsing refresh schedule %q: %w", s.cfg.Schedule, err)
		}
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.Reload()

	var changes <-chan struct{}
	if s.cfg.Watch {
		w, err := newWatcher(s.cfg.DataDir, s.log)
		if err != nil {
			s.log.Warn("file watcher unavailable", "dir", s.cfg.DataDir, "error", err)
		} else {
			defer func() { _ = w.Close() }()
			changes = w.Changes()
			s.mu.Lock()
			s.watching = true
			s.mu.Unlock()
		}
	}

	var tick <-chan time.Time
	var timer *time.Timer
	if sched != nil {
		timer = time.NewTimer(time.Until(sched.Next(time.Now())))
		defer timer.Stop()
		tick = timer.C
	}

	s.log.Info("daemon started", "addr", s.cfg.Addr, "data_dir", s.cfg.DataDir,
		"schedule", s.cfg.Schedule, "watch", changes != nil)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-tick:
			s.log.Debug("scheduled reload")
			s.Reload()
			timer.Reset(time.Until(sched.Next(time.Now())))
		case <-changes:
			s.log.Info("data directory changed, reloading")
			s.Reload()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// Reload loads the dataset, reruns the engines, and publishes an event when
// the snapshot changed.
func (s *Service) Reload() {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	ds, err := s.loadDataset()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastLoadAt = time.Now()
		s.loadCount++
		s.mu.Unlock()
		s.log.Error("reload failed", "error", err)
		return
	}

	a := pipeline.Analyze(ds, s.seg)
	now := time.Now()
	snap := snapshotFromAnalysis(a, len(ds.Rewards), now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.analysis = a
	s.lastLoadAt = now
	s.loadCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventDatasetChanged, Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
	s.log.Info("reload complete", "users", snap.Users, "took", time.Since(start).Round(time.Millisecond),
		"cache_hits", ds.Stats.CacheHits, "reparsed", ds.Stats.Reparsed)
	if a.SegmentErr != nil {
		s.log.Warn("segmentation unavailable", "error", a.SegmentErr)
	}
	if a.PredictErr != nil {
		s.log.Warn("prediction model unavailable", "error", a.PredictErr)
	}
}

func (s *Service) loadDataset() (*pipeline.Dataset, error) {
	if s.cfg.UseCache {
		path := s.cfg.CachePath
		if path == "" {
			path = pipeline.CachePath()
		}
		cache, err := store.Open(path)
		if err == nil {
			defer func() { _ = cache.Close() }()
			ds, loadErr := pipeline.LoadWithCache(s.cfg.DataDir, cache, nil)
			if loadErr == nil {
				return ds, nil
			}
			s.log.Warn("cached load failed, reparsing", "error", loadErr)
		}
	}
	return pipeline.Load(s.cfg.DataDir, nil)
}

func snapshotFromAnalysis(a *pipeline.Analysis, rewards int, at time.Time) Snapshot {
	return Snapshot{
		At:               at,
		Users:            a.Overview.TotalUsers,
		TotalSavings:     a.Overview.TotalSavings,
		TotalCigsAvoided: a.Overview.TotalCigsAvoided,
		AvgDays:          a.Overview.AvgDays,
		Coefficient:      a.Metrics.Coefficient,
		R2:               a.Metrics.R2,
		Rewards:          rewards,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Users:            curr.Users - prev.Users,
		TotalSavings:     curr.TotalSavings - prev.TotalSavings,
		TotalCigsAvoided: curr.TotalCigsAvoided - prev.TotalCigsAvoided,
		Rewards:          curr.Rewards - prev.Rewards,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastLoadAt:      s.lastLoadAt,
		LoadCount:       s.loadCount,
		DataDir:         s.cfg.DataDir,
		Schedule:        s.cfg.Schedule,
		Watching:        s.watching,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// currentAnalysis returns the latest engine results, or nil before the
// first successful load.
func (s *Service) currentAnalysis() *pipeline.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
