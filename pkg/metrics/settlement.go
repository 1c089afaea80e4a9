package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics records ledger-side activity counters.
type SettlementMetrics struct {
	txnsAppended       *prometheus.CounterVec
	unlocks            prometheus.Counter
	driftRepairs       prometheus.Counter
	reconciliationFlag prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	txns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_txns_appended_total",
		Help: "Wallet ledger transactions appended, by type.",
	}, []string{"type"})
	unlocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_hold_unlocks_total",
		Help: "Hold credits promoted to available balance.",
	})
	drift := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_balance_drift_repairs_total",
		Help: "Vendor balance caches rebuilt after detected drift.",
	})
	flags := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_reconciliation_flags_total",
		Help: "Ledger rows flagged for manual reconciliation.",
	})
	reg.MustRegister(txns, unlocks, drift, flags)
	return &SettlementMetrics{
		txnsAppended:       txns,
		unlocks:            unlocks,
		driftRepairs:       drift,
		reconciliationFlag: flags,
	}
}

// IncTxnAppended counts one appended ledger row of the given type.
func (m *SettlementMetrics) IncTxnAppended(txnType string) {
	if m == nil || m.txnsAppended == nil {
		return
	}
	if txnType == "" {
		txnType = "unknown"
	}
	m.txnsAppended.WithLabelValues(txnType).Inc()
}

// IncUnlock counts one hold-to-available promotion.
func (m *SettlementMetrics) IncUnlock() {
	if m == nil || m.unlocks == nil {
		return
	}
	m.unlocks.Inc()
}

// IncDriftRepair counts one cache rebuild after drift.
func (m *SettlementMetrics) IncDriftRepair() {
	if m == nil || m.driftRepairs == nil {
		return
	}
	m.driftRepairs.Inc()
}

// IncReconciliationFlag counts one row flagged for manual reconciliation.
func (m *SettlementMetrics) IncReconciliationFlag() {
	if m == nil || m.reconciliationFlag == nil {
		return
	}
	m.reconciliationFlag.Inc()
}
