package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/launcher/internal/core/domain"
)

// Status is a point-in-time snapshot of the launcher for the health
// endpoints. State is a display label; Ready and Failed drive the
// aggregate verdict.
type Status struct {
	State             string                 `json:"state"`
	Ready             bool                   `json:"ready"`
	Failed            bool                   `json:"failed"`
	Degraded          bool                   `json:"degraded"`
	SignedIn          bool                   `json:"signedIn"`
	RealtimeConnected bool                   `json:"realtimeConnected"`
	ActiveDownloads   int                    `json:"activeDownloads"`
	Version           string                 `json:"version"`
	Errors            []*domain.StartupError `json:"errors,omitempty"`
}

// StatusFunc produces the current snapshot. The shell provides it.
type StatusFunc func() Status

// Server provides the local diagnostic HTTP endpoints.
type Server struct {
	status StatusFunc
	server *http.Server
}

// NewServer creates a diagnostic server bound to loopback only.
func NewServer(status StatusFunc, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status: status,
		server: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.status()

	status := "starting"
	code := http.StatusOK
	switch {
	case snap.Failed:
		status = "critical"
		code = http.StatusServiceUnavailable
	case snap.Ready && snap.Degraded:
		status = "degraded"
	case snap.Ready:
		status = "healthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	snap := s.status()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
