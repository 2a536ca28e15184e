package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the Postgres and Redis wrappers.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis Pinger
}

func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Services: map[string]string{}}
	status := http.StatusOK
	for name, p := range map[string]Pinger{"postgres": h.db, "redis": h.redis} {
		if p == nil {
			continue
		}
		if err := p.Health(ctx); err != nil {
			resp.Services[name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// Ready reports whether both backing stores answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for _, p := range []Pinger{h.db, h.redis} {
		if p == nil {
			continue
		}
		if err := p.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}
