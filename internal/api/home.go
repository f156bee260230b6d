package api

import (
	"net/http"

	"github.com/ndsh/metasearch/internal/api/respond"
)

// Greeting is returned by GET /.
const Greeting = "Welcome to the CEDA Metadata Search API, POST a query to /search to experiment"

// HomeResponse is the body of GET /.
type HomeResponse struct {
	Greeting     string `json:"greeting"`
	CurrentModel string `json:"current_model"`
	HealthCheck  string `json:"health_check"`
}

// HomeHandler serves the service banner.
type HomeHandler struct {
	searcher Searcher
	health   HealthReporter
}

func NewHomeHandler(searcher Searcher, health HealthReporter) *HomeHandler {
	return &HomeHandler{searcher: searcher, health: health}
}

// Home handles GET /. It reads cached health only and never touches the model.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	check := "OK"
	if h.health != nil && !h.health.IsHealthy() {
		check = "DEGRADED"
	}
	respond.WriteJSON(w, http.StatusOK, HomeResponse{
		Greeting:     Greeting,
		CurrentModel: h.searcher.ModelName(),
		HealthCheck:  check,
	})
}
