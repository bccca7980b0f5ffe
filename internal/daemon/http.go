package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/breathsave/breathsave/internal/model"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/predict"
)

// Router builds the HTTP API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/overview", s.handleOverview)
		r.Get("/segments", s.handleSegments)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/predictions", s.handlePredictions)
		r.Get("/range", s.handleRange)
		r.Get("/rewards", s.handleRewards)
		r.Get("/correlations", s.handleCorrelations)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

func requestLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg},
	})
}

// analysisOr503 returns the current analysis or writes 503 when none exists yet.
func (s *Service) analysisOr503(w http.ResponseWriter) *pipeline.Analysis {
	a := s.currentAnalysis()
	if a == nil {
		msg := "dataset not loaded"
		if st := s.snapshotStatus(); st.LastError != "" {
			msg += ": " + st.LastError
		}
		writeError(w, http.StatusServiceUnavailable, msg)
	}
	return a
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleOverview(w http.ResponseWriter, _ *http.Request) {
	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	writeJSON(w, http.StatusOK, a.Overview)
}

// segmentsResponse is served at /v1/segments.
type segmentsResponse struct {
	Clusters []model.ClusterStats `json:"clusters"`
	Users    int                  `json:"users"`
}

func (s *Service) handleSegments(w http.ResponseWriter, _ *http.Request) {
	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	if a.SegmentErr != nil {
		writeError(w, http.StatusUnprocessableEntity, a.SegmentErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, segmentsResponse{Clusters: a.Clusters, Users: len(a.ClusterIDs)})
}

func (s *Service) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	if a.PredictErr != nil {
		writeError(w, http.StatusUnprocessableEntity, a.PredictErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.Metrics)
}

// Prediction is one entry of the /v1/predictions response.
type Prediction struct {
	CigsAvoided   float64 `json:"cigs_avoided"`
	PredictedSave float64 `json:"predicted_savings"`
	PerCigarette  float64 `json:"per_cigarette"`
	TimelineDays  float64 `json:"timeline_days"`
}

func (s *Service) handlePredictions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()["x"]
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "at least one x query parameter is required")
		return
	}
	xs := make([]float64, len(raw))
	for i, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid x %q", v))
			return
		}
		xs[i] = f
	}

	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	if a.PredictErr != nil {
		writeError(w, http.StatusUnprocessableEntity, a.PredictErr.Error())
		return
	}
	ys, err := a.Model.PredictBatch(xs)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out := make([]Prediction, len(xs))
	for i := range xs {
		out[i] = Prediction{
			CigsAvoided:   xs[i],
			PredictedSave: ys[i],
			PerCigarette:  predict.PerCigarette(ys[i], xs[i]),
			TimelineDays:  predict.EstimateTimelineDays(ys[i]),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleRange(w http.ResponseWriter, r *http.Request) {
	maxX := s.cfg.RangeMax
	points := s.cfg.RangePoints
	q := r.URL.Query()
	fromData := true
	if v := q.Get("max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid max %q", v))
			return
		}
		maxX, fromData = f, false
	}
	if v := q.Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid points %q", v))
			return
		}
		points = n
	}

	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	if a.PredictErr != nil {
		writeError(w, http.StatusUnprocessableEntity, a.PredictErr.Error())
		return
	}
	if fromData {
		maxX = a.Model.RangeMax(maxX)
	}
	pts, err := a.Model.Points(maxX, points)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

func (s *Service) handleRewards(w http.ResponseWriter, _ *http.Request) {
	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	writeJSON(w, http.StatusOK, a.Rewards)
}

func (s *Service) handleCorrelations(w http.ResponseWriter, _ *http.Request) {
	a := s.analysisOr503(w)
	if a == nil {
		return
	}
	writeJSON(w, http.StatusOK, a.Correlations)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
