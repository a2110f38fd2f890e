package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps contiene lo que el router necesita.
type Deps struct {
	Checks  []Check
	Version string
	// Metrics sirve /metrics; nil lo omite.
	Metrics http.Handler
	// Instrument envuelve las rutas con métricas HTTP; nil lo omite.
	Instrument func(http.Handler) http.Handler
	// CheckTimeout acota /readyz completo. Default 2s.
	CheckTimeout time.Duration
}

// NewRouter arma el router de operación.
func NewRouter(deps Deps) http.Handler {
	if deps.CheckTimeout <= 0 {
		deps.CheckTimeout = 2 * time.Second
	}
	h := &health{checks: deps.Checks, version: deps.Version, timeout: deps.CheckTimeout}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if deps.Instrument != nil {
		r.Use(deps.Instrument)
	}

	r.Get("/healthz", healthz)
	r.Get("/readyz", h.readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	return r
}
