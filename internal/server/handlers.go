package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ai4p/usagedash/internal/history"
	"github.com/ai4p/usagedash/internal/httputil"
	"github.com/ai4p/usagedash/internal/logging"
)

const version = "1.0.0"

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type reportInfo struct {
	File       string `json:"file"`
	ModifiedAt string `json:"modified_at"`
	SizeBytes  int64  `json:"size_bytes"`
}

type statusResponse struct {
	Refreshing  bool         `json:"refreshing"`
	LiveClients int          `json:"live_clients"`
	NextRun     string       `json:"next_run,omitempty"`
	Report      *reportInfo  `json:"report,omitempty"`
	LastRun     *history.Run `json:"last_run,omitempty"`
	LastSuccess *history.Run `json:"last_success,omitempty"`
}

type refreshResponse struct {
	Status string `json:"status"`
}

func HealthHandler(_ *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &healthResponse{
			Status:    "healthy",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// StatusHandler reports the current refresh state, the published report, and
// the most recent runs.
func StatusHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := &statusResponse{
			Refreshing:  s.pipe.Busy(),
			LiveClients: s.hub.ClientCount(),
		}
		if s.sched != nil {
			if next := s.sched.Next(); !next.IsZero() {
				resp.NextRun = next.Format(time.RFC3339)
			}
		}
		if info, err := os.Stat(s.cfg.OutputPath()); err == nil {
			resp.Report = &reportInfo{
				File:       s.cfg.Output.File,
				ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
				SizeBytes:  info.Size(),
			}
		}
		if s.store != nil {
			if run, err := s.store.Last(r.Context()); err == nil {
				resp.LastRun = run
			} else {
				logging.Warnf("Could not read last run: %v", err)
			}
			if run, err := s.store.LastSuccess(r.Context()); err == nil {
				resp.LastSuccess = run
			}
		}
		httputil.OkJSON(w, resp)
	}
}

// HistoryHandler returns recent runs, newest first. Route: GET /api/v1/history?limit=N
func HistoryHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			httputil.OkJSON(w, []history.Run{})
			return
		}
		limit := httputil.QueryInt(r, "limit", 20)
		runs, err := s.store.Recent(r.Context(), limit)
		if err != nil {
			httputil.InternalError(w, err.Error())
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		httputil.OkJSON(w, runs)
	}
}

// RefreshHandler starts a refresh in the background. Returns 409 while a run
// is already in flight, 202 otherwise.
func RefreshHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.pipe.Busy() {
			httputil.ErrorWithCode(w, http.StatusConflict, "a refresh is already running")
			return
		}
		go func() {
			if _, err := s.pipe.Refresh(context.Background(), history.TriggerAPI); err != nil {
				logging.Warnf("API-triggered refresh failed: %v", err)
			}
		}()
		httputil.WriteJSON(w, http.StatusAccepted, &refreshResponse{Status: "started"})
	}
}

// DashboardHandler serves the published report at /.
func DashboardHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := s.cfg.OutputPath()
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			httputil.NotFound(w, "no dashboard published yet; run a refresh first")
			return
		}
		http.ServeFile(w, r, path)
	}
}

// ReportFileHandler serves sibling files from the output dir (screenshots,
// row snapshots) by base name only. Dotfiles and anything that resolves
// outside the directory are rejected.
func ReportFileHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			httputil.NotFound(w, "")
			return
		}
		full := filepath.Join(s.cfg.Output.Dir, name)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			httputil.NotFound(w, "")
			return
		}
		http.ServeFile(w, r, full)
	}
}
