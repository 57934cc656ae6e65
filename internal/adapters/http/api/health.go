package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/feedlens/pkg/metrics"
)

const readyTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz. The body is the Prometheus exposition of
// the service registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// ReadyHandler reports whether the analysis backend is reachable.
type ReadyHandler struct {
	deps Dependencies
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(deps Dependencies) *ReadyHandler {
	return &ReadyHandler{deps: deps}
}

type readyResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// HandleReady handles GET /readyz.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.deps.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{
			Status:  "unavailable",
			Backend: fmt.Errorf("%w: %w", ErrNotReady, err).Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ok", Backend: "ok"})
}
