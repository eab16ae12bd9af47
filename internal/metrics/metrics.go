// Package metrics exposes Prometheus instrumentation for evaluations,
// session changes and HTTP requests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pieme/nzpoints/internal/engine"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	// Evaluations by rule table and threshold outcome
	Evaluations *prometheus.CounterVec

	// Points awarded per category
	CategoryPoints *prometheus.HistogramVec

	// Unpriced answers by category and field
	Anomalies *prometheus.CounterVec

	// Session store changes by action
	SessionUpdates *prometheus.CounterVec

	// HTTP request latency by route, method and status
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nzpoints_evaluations_total",
			Help: "Total evaluations by rule table and whether the threshold was met",
		}, []string{"rule_table", "outcome"}), // outcome: "meets", "below"

		CategoryPoints: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nzpoints_category_points",
			Help:    "Points awarded per category",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 50, 60, 80, 110},
		}, []string{"category"}),

		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nzpoints_anomalies_total",
			Help: "Answers the rule table could not price, by category and field",
		}, []string{"category", "field"}),

		SessionUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nzpoints_session_updates_total",
			Help: "Session changes by action",
		}, []string{"action"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nzpoints_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),
	}
}

// ObserveEvaluation records one result set.
func (m *Metrics) ObserveEvaluation(rs engine.ResultSet) {
	if m == nil {
		return
	}
	outcome := "below"
	if rs.MeetsThreshold() {
		outcome = "meets"
	}
	m.Evaluations.WithLabelValues(rs.RuleTable, outcome).Inc()
	for _, it := range rs.Items {
		m.CategoryPoints.WithLabelValues(string(it.Category)).Observe(float64(it.Points))
	}
	for _, a := range rs.Anomalies {
		m.Anomalies.WithLabelValues(string(a.Category), a.Field).Inc()
	}
}

// IncrementSessionUpdate records a session change.
func (m *Metrics) IncrementSessionUpdate(action string) {
	if m != nil {
		m.SessionUpdates.WithLabelValues(action).Inc()
	}
}

// ObserveRequest records an HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
