package services

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition names used as metric labels
const (
	transitionSave         = "save"
	transitionPublish      = "publish"
	transitionArchive      = "archive"
	transitionCopy         = "copy"
	transitionIssueByEmail = "issue_by_email"
)

const outcomeSuccess = "success"

// TransitionMetrics records badge lifecycle outcomes. A zero value or one
// built with a nil registry records nothing.
type TransitionMetrics struct {
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
}

// NewTransitionMetrics registers the badge metrics with registry
func NewTransitionMetrics(registry prometheus.Registerer) *TransitionMetrics {
	if registry == nil {
		return &TransitionMetrics{}
	}

	factory := promauto.With(registry)

	return &TransitionMetrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekit_badge_transitions_total",
			Help: "Total number of badge lifecycle transitions by outcome",
		}, []string{"transition", "outcome"}),

		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgekit_badge_transition_duration_seconds",
			Help:    "Duration of badge lifecycle transitions",
			Buckets: prometheus.DefBuckets,
		}, []string{"transition"}),

		cacheLookup: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekit_published_badge_cache_lookups_total",
			Help: "Published badge read cache lookups by result",
		}, []string{"result"}),
	}
}

// observe records one finished transition
func (m *TransitionMetrics) observe(transition string, start time.Time, err error) {
	if m == nil || m.transitions == nil {
		return
	}

	outcome := outcomeSuccess
	if err != nil {
		outcome = strings.ToLower(GetServiceError(err).Type)
	}

	m.transitions.WithLabelValues(transition, outcome).Inc()
	m.durations.WithLabelValues(transition).Observe(time.Since(start).Seconds())
}

func (m *TransitionMetrics) cacheResult(hit bool) {
	if m == nil || m.cacheLookup == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}
