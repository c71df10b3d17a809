package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Scope outcomes reported on history_scopes_total.
const (
	OutcomeOpened  = "opened"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// HistoryMetrics counts history scopes opened by the request boundary.
// A nil *HistoryMetrics is valid and records nothing.
type HistoryMetrics struct {
	scopes  *prometheus.CounterVec
	rebinds prometheus.Counter
}

// NewHistoryMetrics creates the history counters and registers them with reg.
// Counters already registered with reg are reused.
func NewHistoryMetrics(reg prometheus.Registerer) (*HistoryMetrics, error) {
	scopes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_scopes_total",
			Help: "History scopes handled by the request boundary, by outcome.",
		},
		[]string{"outcome"},
	)
	rebinds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_identity_rebinds_total",
			Help: "Identity reassignments folded into an open history scope.",
		},
	)

	var err error
	if scopes, err = registerOrReuse(reg, scopes); err != nil {
		return nil, fmt.Errorf("registering history_scopes_total: %w", err)
	}
	if rebinds, err = registerOrReuse(reg, rebinds); err != nil {
		return nil, fmt.Errorf("registering history_identity_rebinds_total: %w", err)
	}

	// Pre-create label values so they show up as zero on /-/metrics.
	for _, outcome := range []string{OutcomeOpened, OutcomeSkipped, OutcomeFailed} {
		scopes.WithLabelValues(outcome)
	}

	return &HistoryMetrics{scopes: scopes, rebinds: rebinds}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ScopeOpened records a request that got a history scope.
func (m *HistoryMetrics) ScopeOpened() {
	m.inc(OutcomeOpened)
}

// ScopeSkipped records a request whose method is not eligible.
func (m *HistoryMetrics) ScopeSkipped() {
	m.inc(OutcomeSkipped)
}

// ScopeFailed records a request whose scope could not be opened.
func (m *HistoryMetrics) ScopeFailed() {
	m.inc(OutcomeFailed)
}

// IdentityRebound records a late identity assignment.
func (m *HistoryMetrics) IdentityRebound() {
	if m == nil {
		return
	}
	m.rebinds.Inc()
}

func (m *HistoryMetrics) inc(outcome string) {
	if m == nil {
		return
	}
	m.scopes.WithLabelValues(outcome).Inc()
}
