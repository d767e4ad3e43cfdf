package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry, nil, 50*time.Millisecond)

	metrics.RecordQuery(QueryKindExec, 10*time.Millisecond, nil)
	metrics.RecordQuery(QueryKindExec, 80*time.Millisecond, assert.AnError)
	metrics.RecordQuery(QueryKindQueryRow, time.Millisecond, sql.ErrNoRows)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.queries.WithLabelValues(QueryKindExec, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.queries.WithLabelValues(QueryKindExec, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.queries.WithLabelValues(QueryKindQueryRow, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.slowQueries))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.RecordQuery(QueryKindQuery, time.Second, nil)
	})
}
