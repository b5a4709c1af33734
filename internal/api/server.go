// Package api provides the DrawSense HTTP server: predictions,
// evaluations, brain introspection and the refresh trigger.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drawsense/drawsense/internal/app/predictor"
	"github.com/drawsense/drawsense/internal/domain"
)

// Version is the served API version.
const Version = "1.0.0"

// Refresher triggers a data refresh cycle. Trigger returns
// domain.ErrRefreshRunning when a cycle is already in flight.
type Refresher interface {
	Trigger(forceTrain bool) error
}

// Server is the DrawSense HTTP API server.
type Server struct {
	svc            *predictor.Service
	refresher      Refresher
	metricsEnabled bool
}

// NewServer creates a new API server around the prediction service.
func NewServer(svc *predictor.Service) *Server {
	return &Server{svc: svc}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRefresher wires the background refresh loop's manual trigger.
func (s *Server) SetRefresher(r Refresher) { s.refresher = r }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "DrawSense is running",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Get("/predict", s.handlePredict)
	r.Post("/evaluate", s.handleEvaluate)
	r.Get("/api/brain", s.handleBrain)
	r.Post("/refresh", s.handleRefresh)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// handlePredict serves GET /predict?type=&day=.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	drawTypeID, ok := parseTypeParam(w, r)
	if !ok {
		return
	}
	day, ok := parseDayParam(w, r)
	if !ok {
		return
	}

	p, err := s.svc.Predict(r.Context(), drawTypeID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// evaluateRequest is the POST /evaluate body.
type evaluateRequest struct {
	Numbers    []int `json:"numbers"`
	DrawTypeID int64 `json:"drawTypeId,omitempty"`
	DayOfWeek  *int  `json:"dayOfWeek,omitempty"`
}

// handleEvaluate serves POST /evaluate.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DayOfWeek != nil && (*req.DayOfWeek < 0 || *req.DayOfWeek > 6) {
		writeError(w, http.StatusBadRequest, "dayOfWeek must be 0..6")
		return
	}

	ev, err := s.svc.Evaluate(r.Context(), req.Numbers, req.DrawTypeID, req.DayOfWeek)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidNumbers) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleBrain serves GET /api/brain?stream=.
func (s *Server) handleBrain(w http.ResponseWriter, r *http.Request) {
	stream := domain.StreamWinning
	if raw := r.URL.Query().Get("stream"); raw != "" {
		stream = domain.Stream(raw)
	}

	report, err := s.svc.BrainReport(stream)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStream) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleRefresh serves POST /refresh?force_train=. The cycle runs in
// the background; the response only reports whether it started.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "refresh loop not running",
		})
		return
	}
	forceTrain := r.URL.Query().Get("force_train") == "true"

	if err := s.refresher.Trigger(forceTrain); err != nil {
		if errors.Is(err, domain.ErrRefreshRunning) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "refresh already in progress",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "refresh started",
	})
}

// parseTypeParam reads the optional ?type= query parameter. Zero means
// the global window.
func parseTypeParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("type")
	if raw == "" || raw == "all" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "type must be a draw type id")
		return 0, false
	}
	return id, true
}

// parseDayParam reads the optional ?day= query parameter (0=Sunday).
func parseDayParam(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return nil, true
	}
	day, err := strconv.Atoi(raw)
	if err != nil || day < 0 || day > 6 {
		writeError(w, http.StatusBadRequest, "day must be 0..6")
		return nil, false
	}
	return &day, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
