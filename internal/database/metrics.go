package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds used as metric labels
const (
	QueryKindExec     = "exec"
	QueryKindQuery    = "query"
	QueryKindQueryRow = "query_row"
)

// Metrics tracks draft store query performance. A nil *Metrics records
// nothing.
type Metrics struct {
	queries     *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	slowQueries prometheus.Counter

	slowQueryThreshold time.Duration
}

// NewMetrics registers query metrics and a pool statistics collector for db
// with registry
func NewMetrics(registry prometheus.Registerer, db *sql.DB, slowQueryThreshold time.Duration) *Metrics {
	factory := promauto.With(registry)

	if db != nil {
		registry.MustRegister(collectors.NewDBStatsCollector(db, "badgekit"))
	}

	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekit_db_queries_total",
			Help: "Draft store queries by kind and outcome",
		}, []string{"kind", "outcome"}),

		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgekit_db_query_duration_seconds",
			Help:    "Draft store query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"kind"}),

		slowQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgekit_db_slow_queries_total",
			Help: "Draft store queries slower than the configured threshold",
		}),

		slowQueryThreshold: slowQueryThreshold,
	}
}

// RecordQuery records one finished query
func (m *Metrics) RecordQuery(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		outcome = "error"
	}

	m.queries.WithLabelValues(kind, outcome).Inc()
	m.durations.WithLabelValues(kind).Observe(duration.Seconds())

	if m.slowQueryThreshold > 0 && duration > m.slowQueryThreshold {
		m.slowQueries.Inc()
	}
}
