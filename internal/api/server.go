// Package api exposes the supervisory HTTP surface: read-only monitor state,
// a cooperative stop endpoint, and the activity report.
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/httputil"
	"github.com/arenalab/ethotrack/internal/monitor"
	"github.com/arenalab/ethotrack/internal/report"
	"github.com/arenalab/ethotrack/internal/storage"
	"github.com/arenalab/ethotrack/internal/version"
)

// Server serves the supervisory API for one monitoring session.
type Server struct {
	mon   *monitor.Monitor
	store *storage.SQLiteWriter
}

// NewServer creates an API server over the given monitor. store may be nil
// when no results are being persisted; the report endpoint then returns 404.
func NewServer(mon *monitor.Monitor, store *storage.SQLiteWriter) *Server {
	return &Server{mon: mon, store: store}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/positions", s.handlePositions)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/report", s.handleReport)
	return mux
}

// statusResponse mirrors the monitor's read-only query surface.
type statusResponse struct {
	Running       bool    `json:"running"`
	LastFrameIdx  int64   `json:"last_frame_idx"`
	LastTimeStamp float64 `json:"last_time_stamp"` // seconds since run start
	RunID         string  `json:"run_id,omitempty"`
	Version       string  `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running:       s.mon.IsRunning(),
		LastFrameIdx:  s.mon.LastFrameIdx(),
		LastTimeStamp: s.mon.LastTimeStamp(),
		Version:       version.Version,
	}
	if s.store != nil {
		resp.RunID = s.store.RunID()
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.mon.LastPositions()
	// non-nil empty slices keep "nothing detected" entries explicit in JSON
	out := make(map[int][]arena.Position, len(positions))
	for idx, rows := range positions {
		if rows == nil {
			rows = []arena.Position{}
		}
		out[idx] = rows
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mon.Stop()
	httputil.WriteJSONOK(w, map[string]string{"status": "stopping"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.NotFound(w, "no result store configured")
		return
	}
	runID := r.URL.Query().Get("run_id")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteActivityReport(s.store.DB(), runID, w); err != nil {
		httputil.InternalServerError(w, err.Error())
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

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("[%d] %s %s %vms",
			lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}
