package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestStockMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStockMetrics(reg)
	m.ObserveDispense(true, "manual")
	m.ObserveDispense(false, "estimator")
	m.ObserveRejection("INSUFFICIENT_STOCK")
	m.ObserveResolution("disposal")
	m.ObserveResolution("disposal")
	m.SetAlertCounts(3, 1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "mpadcs_dispenses_total", "source", "estimator"); err != nil {
		t.Fatalf("fetch dispenses: %v", err)
	} else if got != 1 {
		t.Fatalf("expected estimator dispenses=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "mpadcs_dispense_rejections_total", "reason", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "mpadcs_workflow_resolutions_total", "workflow", "disposal"); err != nil {
		t.Fatalf("fetch resolutions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected disposal resolutions=2, got %f", got)
	}

	low := findMetricFamily(mfs, "mpadcs_low_stock_medications")
	if low == nil || low.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected low stock gauge=3, got %v", low)
	}
}

func TestStockMetricsNilSafe(t *testing.T) {
	var m *StockMetrics
	m.ObserveDispense(true, "manual")
	m.ObserveRejection("x")
	m.ObserveResolution("supply")
	m.SetAlertCounts(1, 1)

	unregistered := NewStockMetrics(nil)
	unregistered.ObserveDispense(false, "")
	unregistered.SetAlertCounts(0, 0)
}
