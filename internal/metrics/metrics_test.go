package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestReconcileMetrics_CountsRecordsAndRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconcileMetrics(reg)

	m.ObserveRecord("identity", "success")
	m.ObserveRecord("identity", "success")
	m.ObserveRecord("identity", "failed")
	m.ObserveRun("identity", "completed", 1.5)
	m.ObserveRun("pricing", "fetch_failed", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("identity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("identity", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("pricing", "fetch_failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestMetrics_NilReceiversAreSafe(t *testing.T) {
	var r *ReconcileMetrics
	var n *NotifyMetrics
	assert.NotPanics(t, func() {
		r.ObserveRecord("identity", "skipped")
		r.ObserveRun("identity", "completed", 1)
		n.Observe("new_message", "sent")
	})
}
