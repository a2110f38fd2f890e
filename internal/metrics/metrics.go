// Package metrics expone las métricas Prometheus del proceso.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "welive"

// Metrics agrupa los collectors y el registry donde viven. Cada instancia
// tiene su propio registry, así los tests no chocan con el global.
type Metrics struct {
	reg *prometheus.Registry

	uowTotal    *prometheus.CounterVec
	uowDuration *prometheus.HistogramVec
	repoErrors  *prometheus.CounterVec
	sessions    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New crea y registra todas las métricas. withRuntime agrega los
// collectors de Go y del proceso.
func New(withRuntime bool) (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		uowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uow_transactions_total",
			Help:      "Unidades de trabajo por aislamiento, estrategia y resultado",
		}, []string{"isolation", "strategy", "result"}), // result: commit|rollback|conflict|timeout
		uowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "uow_duration_seconds",
			Help:      "Duración de las unidades de trabajo",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"isolation"}),
		repoErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_errors_total",
			Help:      "Errores técnicos de repositorio por tipo",
		}, []string{"kind"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Eventos de sesión (login, refresh, logout, revoke) por resultado",
		}, []string{"event", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de los requests HTTP",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	cs := []prometheus.Collector{m.uowTotal, m.uowDuration, m.repoErrors, m.sessions, m.httpRequests, m.httpDuration}
	if withRuntime {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := m.reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry retorna el registry subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler sirve /metrics para este registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveUnitOfWork implementa store.Recorder.
func (m *Metrics) ObserveUnitOfWork(isolation, strategy, result string, d time.Duration) {
	m.uowTotal.WithLabelValues(isolation, strategy, result).Inc()
	m.uowDuration.WithLabelValues(isolation).Observe(d.Seconds())
}

// ObserveRepositoryError implementa store.Recorder.
func (m *Metrics) ObserveRepositoryError(kind string) {
	m.repoErrors.WithLabelValues(kind).Inc()
}

// ObserveSession cuenta un evento del manejador de sesiones.
func (m *Metrics) ObserveSession(event, result string) {
	m.sessions.WithLabelValues(event, result).Inc()
}

// RegisterPool agrega gauges del pool de Postgres.
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) error {
	return m.reg.Register(newPoolCollector(pool))
}

// WithHTTP instrumenta un handler chi. La ruta se etiqueta con el patrón
// de chi para no explotar la cardinalidad.
func (m *Metrics) WithHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// poolCollector expone las estadísticas de pgxpool como gauges.
type poolCollector struct {
	pool *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
	maxDesc      *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc(namespace+"_pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc(namespace+"_pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc(namespace+"_pg_pool_total", "Conexiones totales", nil, nil),
		maxDesc:      prometheus.NewDesc(namespace+"_pg_pool_max", "Máximo de conexiones configurado", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
	ch <- c.maxDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	st := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.maxDesc, prometheus.GaugeValue, float64(st.MaxConns()))
}
