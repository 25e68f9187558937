package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psaab/tblmgr/pkg/logging"
	"github.com/psaab/tblmgr/pkg/metrics"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/table"
)

// Tables is the table view the API reads from. *table.Manager
// implements it.
type Tables interface {
	Device() pipe.DevID
	Tables() []*table.Table
	TableByName(name string) (*table.Table, error)
	TableStates() []metrics.TableState
}

// Config configures the API server.
type Config struct {
	Addr     string
	Backend  string
	Tables   Tables
	Registry *prometheus.Registry // nil = no /metrics
	Events   *logging.EventBuffer // nil = no /api/v1/events
	Ready    func() bool          // nil = always ready
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	tables     Tables
	events     *logging.EventBuffer
	ready      func() bool
	backend    string
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		tables:    cfg.Tables,
		events:    cfg.Events,
		ready:     cfg.Ready,
		backend:   cfg.Backend,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /api/v1/status", s.statusHandler)
	mux.HandleFunc("GET /api/v1/tables", s.tablesHandler)
	mux.HandleFunc("GET /api/v1/tables/{name}", s.tableHandler)
	if cfg.Events != nil {
		mux.HandleFunc("GET /api/v1/events", s.eventsHandler)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
