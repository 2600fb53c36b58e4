package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch("remote", OutcomeFallback, 30*time.Millisecond)
	m.Mismatch("vendor", "warning")
	m.Mismatch("vendor", "warning")
	m.Verification("consistent")
	m.Routed("mismatches", false)
	m.ToolCall("inventory_summary", OutcomeOK, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetchTotal.WithLabelValues("remote", OutcomeFallback)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.mismatches.WithLabelValues("vendor", "warning")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.routing.WithLabelValues("mismatches", "false")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "netpilot_source_fetch_total")
	assert.Contains(t, names, "netpilot_tool_calls_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("local", OutcomeOK, time.Second)
		m.Mismatch("presence", "warning")
		m.Verification("inconclusive")
		m.Routed("summary", true)
		m.ToolCall("x", OutcomeError, time.Second)
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
		New(nil)
		New(nil)
	})
}
