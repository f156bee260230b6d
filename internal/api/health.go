package api

import (
	"net/http"
	"time"

	"github.com/ndsh/metasearch/internal/api/respond"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	health HealthReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health HealthReporter) *HealthHandler {
	return &HealthHandler{health: health}
}

// CheckHealth handles GET /health.
// Always returns 200; body reports UP/DOWN per component. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := statusUp
	components := map[string]string{}
	if h.health != nil {
		if !h.health.IsHealthy() {
			status = statusDown
		}
		for name, ok := range h.health.Components() {
			components[name] = upDown(ok)
		}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func upDown(ok bool) string {
	if ok {
		return statusUp
	}
	return statusDown
}
