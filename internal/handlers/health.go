package handlers

import (
	"context"
	"net/http"
	"time"
)

type storePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   storePinger
	version string
}

func NewHealthHandler(store storePinger, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Store     string    `json:"store,omitempty"`
	Latency   string    `json:"latency,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Live always answers 200 while the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now(),
	})
}

// Ready pings the entry store: 200 if reachable, 503 if not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "down",
			Store:     "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Store:     "ok",
		Latency:   time.Since(start).String(),
		Timestamp: time.Now(),
	})
}
