package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler serves liveness probes.
type HealthHandler struct {
	version string
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now()}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
