package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inventory"

// SyncMetrics groups the collectors of the sync flow. A nil *SyncMetrics is
// valid and records nothing.
type SyncMetrics struct {
	runs              *prometheus.CounterVec
	duration          *prometheus.HistogramVec
	decisions         *prometheus.CounterVec
	externalRequests  *prometheus.CounterVec
	externalDurations *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	m := &SyncMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total number of inventory sync runs.",
		}, []string{"marketplace", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of inventory sync runs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"marketplace"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_listing_decisions_total",
			Help:      "Per-listing sync decisions.",
		}, []string{"marketplace", "decision"}),
		externalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_requests_total",
			Help: "Calls made to marketplace ports.",
		}, []string{"marketplace", "operation", "outcome"}),
		externalDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_request_duration_seconds",
			Help:    "Duration of marketplace port calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"marketplace", "operation"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.duration, m.decisions, m.externalRequests, m.externalDurations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SyncMetrics) ObserveRun(marketplace, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(marketplace, outcome).Inc()
	m.duration.WithLabelValues(marketplace).Observe(seconds)
}

func (m *SyncMetrics) CountDecision(marketplace, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(marketplace, decision).Inc()
}

func (m *SyncMetrics) ObserveExternal(marketplace, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.externalRequests.WithLabelValues(marketplace, operation, outcome).Inc()
	m.externalDurations.WithLabelValues(marketplace, operation).Observe(seconds)
}
