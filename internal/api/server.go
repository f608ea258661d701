package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tapsense-data/tapsense/internal/db"
	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/trigger"
	"github.com/tapsense-data/tapsense/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Measurer runs one measurement attempt. Satisfied by *trigger.Coordinator;
// tests substitute a stub.
type Measurer interface {
	ResolveMode() trigger.TriggerMode
	RunMeasurement(ctx context.Context) (*trigger.Measurement, error)
}

type Server struct {
	db       *db.DB
	measurer Measurer

	// MeasureTimeout bounds one POST /api/measure attempt. The capture
	// itself takes ~10s, so this must comfortably exceed that.
	MeasureTimeout time.Duration
}

func NewServer(database *db.DB, measurer Measurer) *Server {
	return &Server{
		db:             database,
		measurer:       measurer,
		MeasureTimeout: 30 * time.Second,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.health)
	mux.HandleFunc("/api/measurements", s.listMeasurements)
	mux.HandleFunc("/api/measurements/", s.measurementByID)
	mux.HandleFunc("/api/measure", s.measure)
	mux.HandleFunc("/charts/history", s.historyChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	payload := map[string]interface{}{
		"status":       "ok",
		"version":      version.Version,
		"git_sha":      version.GitSHA,
		"trigger_mode": string(s.measurer.ResolveMode()),
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write health")
	}
}

func (s *Server) listMeasurements(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	measurements, err := s.db.ListMeasurements(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve measurements: %v", err))
		return
	}
	if measurements == nil {
		measurements = []*db.Measurement{}
	}

	if err := json.NewEncoder(w).Encode(measurements); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write measurements")
	}
}

func (s *Server) measurementByID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := strings.TrimPrefix(r.URL.Path, "/api/measurements/")
	if id == "" || strings.Contains(id, "/") {
		s.writeJSONError(w, http.StatusNotFound, "Measurement not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := s.db.GetMeasurement(id)
		if errors.Is(err, db.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Measurement not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve measurement: %v", err))
			return
		}
		if err := json.NewEncoder(w).Encode(m); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write measurement")
		}
	case http.MethodDelete:
		err := s.db.DeleteMeasurement(id)
		if errors.Is(err, db.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Measurement not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to delete measurement: %v", err))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"deleted": id})
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// measure runs one full measurement attempt and persists the result.
// Attempts are serialized upstream by the coordinator; a second concurrent
// POST simply waits its turn on the capture device.
func (s *Server) measure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.MeasureTimeout)
	defer cancel()

	result, err := s.measurer.RunMeasurement(ctx)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Measurement failed: %v", err))
		return
	}

	row := db.NewMeasurement(result)
	if err := s.db.RecordMeasurement(row); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to record measurement: %v", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(row); err != nil {
		monitoring.Logf("failed to write measurement response: %v", err)
	}
}
