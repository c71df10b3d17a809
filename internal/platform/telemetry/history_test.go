package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewHistoryMetrics(reg)
	require.NoError(t, err)

	m.ScopeOpened()
	m.ScopeOpened()
	m.ScopeSkipped()
	m.IdentityRebound()

	assert.InDelta(t, 2, testutil.ToFloat64(m.scopes.WithLabelValues(OutcomeOpened)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.scopes.WithLabelValues(OutcomeSkipped)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.scopes.WithLabelValues(OutcomeFailed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rebinds), 0)
}

func TestHistoryMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewHistoryMetrics(reg)
	require.NoError(t, err)
	second, err := NewHistoryMetrics(reg)
	require.NoError(t, err)

	first.ScopeOpened()
	second.ScopeOpened()

	assert.InDelta(t, 2, testutil.ToFloat64(first.scopes.WithLabelValues(OutcomeOpened)), 0)
}

func TestHistoryMetrics_NilIsNoop(t *testing.T) {
	var m *HistoryMetrics

	assert.NotPanics(t, func() {
		m.ScopeOpened()
		m.ScopeSkipped()
		m.ScopeFailed()
		m.IdentityRebound()
	})
}
