// Package metrics exposes load case counters to Prometheus.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ruslano69/mssql-typeload/pkg/harness"
)

// Metrics holds the collectors of one run, on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// casesTotal counts finished cases by mode and status.
	casesTotal *prometheus.CounterVec

	// rowsSentTotal counts rows handed to the server per case.
	rowsSentTotal *prometheus.CounterVec

	// rowsAffectedTotal counts rows the server confirmed per case.
	rowsAffectedTotal *prometheus.CounterVec

	// caseDuration observes case wall time.
	caseDuration *prometheus.HistogramVec
}

// New creates the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		casesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeload_cases_total",
				Help: "Finished load cases by mode and status",
			},
			[]string{"mode", "status"},
		),
		rowsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeload_rows_sent_total",
				Help: "Rows handed to the server",
			},
			[]string{"case"},
		),
		rowsAffectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeload_rows_affected_total",
				Help: "Rows the server reported as written",
			},
			[]string{"case"},
		),
		caseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typeload_case_duration_seconds",
				Help:    "Wall time of a load case",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"case"},
		),
	}
}

// Observe records one case result. Safe for concurrent use.
func (m *Metrics) Observe(res harness.Result) {
	status := "success"
	if res.Err != nil {
		status = "failed"
	}

	m.casesTotal.WithLabelValues(res.Mode.String(), status).Inc()
	m.rowsSentTotal.WithLabelValues(res.Name).Add(float64(res.RowsSent))
	m.rowsAffectedTotal.WithLabelValues(res.Name).Add(float64(res.RowsAffected))
	m.caseDuration.WithLabelValues(res.Name).Observe(res.Duration.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}
