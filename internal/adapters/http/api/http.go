// Package api declares the operational HTTP endpoints and the shared
// request middleware.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Dependencies required by the operational handlers.
type Dependencies interface {
	// Ping reports whether the analysis backend answers.
	Ping(ctx context.Context) error
}

// Server wires the operational HTTP routes.
type Server struct {
	healthHandler *HealthHandler
	readyHandler  *ReadyHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		readyHandler:  NewReadyHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
	}
}

// Register attaches the operational routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/readyz", s.readyHandler.HandleReady)
	r.Get("/stats", s.statsHandler.HandleStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
