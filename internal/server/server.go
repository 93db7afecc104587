package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/history"
	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/realtime"
	"github.com/ai4p/usagedash/internal/scheduler"
)

// Refresher triggers dashboard refreshes and reports whether one is running.
// *pipeline.Pipeline implements it.
type Refresher interface {
	Busy() bool
	Refresh(ctx context.Context, trigger string) (*history.Run, error)
}

// Server serves the published dashboard, the status/history API, and the
// live-reload WebSocket endpoint.
type Server struct {
	cfg   *config.Config
	pipe  Refresher
	store *history.Store
	sched *scheduler.Scheduler // nil when scheduling is disabled
	hub   *realtime.Hub
}

// New wires a server around an existing pipeline and run-history store.
func New(cfg *config.Config, pipe Refresher, store *history.Store, sched *scheduler.Scheduler) *Server {
	return &Server{
		cfg:   cfg,
		pipe:  pipe,
		store: store,
		sched: sched,
		hub:   realtime.NewHub(),
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := checkAddrAvailable(s.cfg.Addr()); err != nil {
		return fmt.Errorf("address %s is already in use: %w", s.cfg.Addr(), err)
	}

	go s.hub.Run(ctx)
	if s.cfg.Server.LiveReload {
		go s.watchOutput(ctx)
	}

	// ReadTimeout/WriteTimeout are omitted on purpose — they set deadlines on
	// the underlying net.Conn, which breaks hijacked WebSocket connections.
	// Keepalive for /ws is handled by ping/pong in the realtime package.
	httpServer := &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     s.router(),
		IdleTimeout: 120 * time.Second,
	}

	logging.Infof("Dashboard server listening on http://%s", s.cfg.Addr())

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logging.Info("Shutting down dashboard server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/healthz", HealthHandler(s))
	r.Get("/ws", realtime.Handler(s.hub))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", StatusHandler(s))
		r.Get("/history", HistoryHandler(s))
		r.Post("/refresh", RefreshHandler(s))
	})

	r.Get("/", DashboardHandler(s))
	r.Get("/{filename}", ReportFileHandler(s))
	return r
}

// checkAddrAvailable checks that the listen address can be bound.
func checkAddrAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
