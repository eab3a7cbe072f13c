// Package httpapi serves the JSON API over the stored price history and
// indicators, plus manual triggers for the update and analysis jobs.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"berza/internal/domain"
	"berza/internal/store"
)

// defaultHistoryLimit caps analysis history responses when the client does
// not pass its own limit.
const defaultHistoryLimit = 100

// Job is a long-running pipeline stage the API can trigger: the update
// pipeline and the analysis run both satisfy it.
type Job interface {
	Run(ctx context.Context) error
}

// Server exposes the read API and the job triggers.
type Server struct {
	prices     store.PriceStore
	indicators store.IndicatorStore
	updater    Job
	analyzer   Job
	log        *slog.Logger

	updateBusy  atomic.Bool
	analyzeBusy atomic.Bool
}

// NewServer creates a Server. updater and analyzer may be nil, disabling
// the corresponding trigger endpoint.
func NewServer(prices store.PriceStore, indicators store.IndicatorStore, updater, analyzer Job, log *slog.Logger) *Server {
	return &Server{
		prices:     prices,
		indicators: indicators,
		updater:    updater,
		analyzer:   analyzer,
		log:        log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/securities", s.handleSecurities)
	mux.HandleFunc("GET /api/prices/{code}", s.handlePrices)
	mux.HandleFunc("GET /api/analysis/latest", s.handleLatestAnalysis)
	mux.HandleFunc("GET /api/analysis/history", s.handleAnalysisHistory)
	mux.HandleFunc("POST /api/update", s.handleUpdate)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) handleSecurities(w http.ResponseWriter, r *http.Request) {
	codes, err := s.prices.ListCodes(r.Context())
	if err != nil {
		s.log.Error("listing securities", "error", err)
		writeError(w, http.StatusInternalServerError, "listing securities failed")
		return
	}
	sort.Strings(codes)
	writeJSON(w, securitiesResponse{Codes: codes})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	points, err := s.prices.ReadSeries(r.Context(), code, start, end)
	if err != nil {
		s.log.Error("reading prices", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "reading prices failed")
		return
	}

	resp := pricesResponse{Code: code, Points: make([]pricePoint, 0, len(points))}
	for _, p := range points {
		resp.Points = append(resp.Points, toPricePoint(p))
	}
	writeJSON(w, resp)
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	code, period, ok := parseAnalysisParams(w, r)
	if !ok {
		return
	}

	row, found, err := s.indicators.LatestIndicator(r.Context(), code, period)
	if err != nil {
		s.log.Error("reading latest indicator", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "reading indicators failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no analysis for "+code)
		return
	}
	writeJSON(w, toIndicatorRow(row))
}

func (s *Server) handleAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	code, period, ok := parseAnalysisParams(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.indicators.RecentIndicators(r.Context(), code, period, limit)
	if err != nil {
		s.log.Error("reading indicator history", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "reading indicators failed")
		return
	}

	out := make([]indicatorRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toIndicatorRow(row))
	}
	writeJSON(w, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.triggerJob(w, "update", s.updater, &s.updateBusy)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.triggerJob(w, "analysis", s.analyzer, &s.analyzeBusy)
}

// triggerJob starts a job in the background. At most one instance of each
// job runs at a time; a trigger while running is rejected rather than
// queued.
func (s *Server) triggerJob(w http.ResponseWriter, name string, job Job, busy *atomic.Bool) {
	if job == nil {
		writeError(w, http.StatusNotImplemented, name+" not configured")
		return
	}
	if !busy.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, name+" already running")
		return
	}

	go func() {
		defer busy.Store(false)
		// The job outlives the triggering request.
		if err := job.Run(context.Background()); err != nil {
			s.log.Error(name+" run failed", "error", err)
			return
		}
		s.log.Info(name + " run finished")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(jobResponse{Status: "started"})
}

// parseAnalysisParams extracts and validates the code and period query
// params shared by the analysis endpoints.
func parseAnalysisParams(w http.ResponseWriter, r *http.Request) (code, period string, ok bool) {
	code = r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return "", "", false
	}
	period = r.URL.Query().Get("period")
	if period == "" {
		period = domain.PeriodDaily
	}
	if !domain.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, "period must be daily, weekly, or monthly")
		return "", "", false
	}
	return code, period, true
}

// parseDateRange reads optional from/to query params, defaulting to the
// full history.
func parseDateRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	end = time.Now().AddDate(1, 0, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return start, end, false
		}
		start = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return start, end, false
		}
		end = t
	}
	return start, end, true
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
