package auditor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hazyhaar/designaudit/design"
)

// Metrics holds Prometheus metrics for audit runs.
//
//   - designaudit_audits_total{result}
//   - designaudit_audit_duration_seconds
//   - designaudit_issue_groups_total{category,severity}
type Metrics struct {
	AuditsTotal   *prometheus.CounterVec
	AuditDuration prometheus.Histogram
	IssueGroups   *prometheus.CounterVec
}

// NewMetrics registers audit metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuditsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designaudit_audits_total",
				Help: "Audits run, by outcome",
			},
			[]string{"result"}, // ok, invalid_url, capture_error, classification_error, storage_error
		),
		AuditDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "designaudit_audit_duration_seconds",
				Help:    "Wall time of a full audit including capture",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
		),
		IssueGroups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designaudit_issue_groups_total",
				Help: "Issue groups reported, by category and severity",
			},
			[]string{"category", "severity"},
		),
	}
}

func (m *Metrics) observe(result string, started time.Time) {
	if m == nil {
		return
	}
	m.AuditsTotal.WithLabelValues(result).Inc()
	m.AuditDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) report(r design.Report) {
	if m == nil {
		return
	}
	for cat, groups := range r.Issues {
		for _, g := range groups {
			m.IssueGroups.WithLabelValues(string(cat), string(g.Severity)).Inc()
		}
	}
}
