package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSettlementMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSettlementMetrics(reg)

	metrics.IncTxnAppended("delivered_hold_credit")
	metrics.IncTxnAppended("delivered_hold_credit")
	metrics.IncTxnAppended("")
	metrics.IncUnlock()
	metrics.IncDriftRepair()
	metrics.IncReconciliationFlag()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "wallet_txns_appended_total", "type", "delivered_hold_credit"); err != nil {
		t.Fatalf("fetch txns: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 credits appended, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "wallet_txns_appended_total", "type", "unknown"); err != nil {
		t.Fatalf("fetch unknown txns: %v", err)
	} else if got != 1 {
		t.Fatalf("expected blank type to normalize, got %f", got)
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var metrics *SettlementMetrics
	metrics.IncTxnAppended("x")
	metrics.IncUnlock()
	metrics.IncDriftRepair()
	metrics.IncReconciliationFlag()

	empty := NewSettlementMetrics(nil)
	empty.IncTxnAppended("x")
	empty.IncUnlock()
}
