// Package ops expone la superficie de operación del proceso: liveness,
// readiness y métricas. No es la API de negocio.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/june5815/welive/internal/observability/logger"
)

// Check verifica una dependencia (storage, cache). nil = ok.
type Check struct {
	Name string
	// Critical: si falla, /readyz responde 503. Si no, solo "degraded".
	Critical bool
	Fn       func(ctx context.Context) error
}

// ComponentStatus es el estado de una dependencia.
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse es la respuesta de /readyz.
type HealthResponse struct {
	Status     string                     `json:"status"` // ready | degraded | unavailable
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

type health struct {
	checks  []Check
	version string
	timeout time.Duration
}

func (h *health) run(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     "ready",
		Version:    h.version,
		Components: make(map[string]ComponentStatus, len(h.checks)),
		Timestamp:  time.Now().UTC(),
	}

	checks := append([]Check(nil), h.checks...)
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	for _, c := range checks {
		if err := c.Fn(ctx); err != nil {
			resp.Components[c.Name] = ComponentStatus{Status: "error", Message: err.Error()}
			logger.From(ctx).Warn("readiness check failed",
				logger.Layer("ops"),
				logger.Component(c.Name),
				logger.Err(err),
			)
			switch {
			case c.Critical:
				resp.Status = "unavailable"
			case resp.Status == "ready":
				resp.Status = "degraded"
			}
			continue
		}
		resp.Components[c.Name] = ComponentStatus{Status: "ok"}
	}
	return resp
}

func (h *health) readyz(w http.ResponseWriter, r *http.Request) {
	resp := h.run(r.Context())

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if resp.Version != "" {
		w.Header().Set("X-Service-Version", resp.Version)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
