package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"fleetdocs/internal/staging"
)

// CommitMetrics records staging commit outcomes and open sessions.
// It implements staging.Recorder.
type CommitMetrics struct {
	operationsTotal *prometheus.CounterVec
	commitsTotal    *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	sessionsOpen    prometheus.Gauge
}

var _ staging.Recorder = (*CommitMetrics)(nil)

func NewCommitMetrics(reg prometheus.Registerer) (*CommitMetrics, error) {
	m := &CommitMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetdocs",
				Subsystem: "commit",
				Name:      "operations_total",
				Help:      "Remote document operations issued by commits, by kind and status.",
			},
			[]string{"kind", "status"},
		),
		commitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetdocs",
				Subsystem: "commit",
				Name:      "total",
				Help:      "Commits attempted, by outcome.",
			},
			[]string{"outcome"},
		),
		commitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "fleetdocs",
				Subsystem: "commit",
				Name:      "duration_seconds",
				Help:      "Wall time of a commit including the refresh.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		sessionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fleetdocs",
				Subsystem: "staging",
				Name:      "sessions_open",
				Help:      "Number of staging sessions currently held in memory.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.operationsTotal, m.commitsTotal, m.commitDuration, m.sessionsOpen} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *CommitMetrics) ObserveOperation(kind staging.OperationKind, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(string(kind), status).Inc()
}

func (m *CommitMetrics) ObserveCommit(res *staging.CommitResult) {
	outcome := "ok"
	switch {
	case res.Skipped:
		outcome = "skipped"
	case !res.OK():
		outcome = "partial"
	}
	m.commitsTotal.WithLabelValues(outcome).Inc()
	if !res.Skipped {
		m.commitDuration.Observe(res.Duration().Seconds())
	}
}

func (m *CommitMetrics) SetSessionsOpen(n int) {
	m.sessionsOpen.Set(float64(n))
}
