package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Policy engine metrics
	PolicyEvaluations *prometheus.CounterVec
	PolicyDuration    *prometheus.HistogramVec
	PolicyErrors      *prometheus.CounterVec
	Decisions         *prometheus.CounterVec

	// Event broker metrics
	EventsPublished *prometheus.CounterVec

	// Notification worker metrics
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PolicyEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_evaluations_total",
			Help:      "Total number of individual policy evaluations",
		}, []string{"policy", "outcome"}),
		PolicyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_evaluation_duration_seconds",
			Help:      "Time spent evaluating a single policy",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"policy"}),
		PolicyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_errors_total",
			Help:      "Total number of policy evaluations that ended in an error",
		}, []string{"policy", "kind"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_decisions_total",
			Help:      "Total number of aggregate policy decisions",
		}, []string{"mode", "outcome"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Total number of events published to the broker",
		}, []string{"event_type", "status"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of notification mails attempted",
		}, []string{"status"}),
	}
}

func outcome(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObservePolicy records one rule evaluation. Safe on a nil receiver.
func (m *Metrics) ObservePolicy(policy string, passed bool, took time.Duration) {
	if m == nil {
		return
	}
	m.PolicyEvaluations.WithLabelValues(policy, outcome(passed)).Inc()
	m.PolicyDuration.WithLabelValues(policy).Observe(took.Seconds())
}

func (m *Metrics) PolicyError(policy, kind string) {
	if m == nil {
		return
	}
	m.PolicyErrors.WithLabelValues(policy, kind).Inc()
}

func (m *Metrics) Decision(mode string, passed bool) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(mode, outcome(passed)).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, status(err)).Inc()
}

func (m *Metrics) NotificationSent(err error) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(status(err)).Inc()
}
