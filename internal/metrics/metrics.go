package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics exposes counters/histograms for reconciliation runs.
type ReconcileMetrics struct {
	recordsTotal *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	m := &ReconcileMetrics{
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dermaclinic",
			Subsystem: "reconcile",
			Name:      "records_total",
			Help:      "Appointment records processed by reconciliation runs",
		}, []string{"policy", "status"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dermaclinic",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome",
		}, []string{"policy", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dermaclinic",
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed reconciliation runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"policy"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.recordsTotal, m.runsTotal, m.runDuration)
	return m
}

func (m *ReconcileMetrics) ObserveRecord(policy, status string) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(policy, status).Inc()
}

func (m *ReconcileMetrics) ObserveRun(policy, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(policy, outcome).Inc()
	if outcome == "completed" {
		m.runDuration.WithLabelValues(policy).Observe(seconds)
	}
}

// NotifyMetrics counts notification fan-out outcomes.
type NotifyMetrics struct {
	sentTotal *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dermaclinic",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications by type and outcome",
		}, []string{"type", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal)
	return m
}

func (m *NotifyMetrics) Observe(notificationType, outcome string) {
	if m == nil {
		return
	}
	m.sentTotal.WithLabelValues(notificationType, outcome).Inc()
}
