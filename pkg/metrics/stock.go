package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics tracks ledger activity for the unit.
type StockMetrics struct {
	dispenses   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	lowStock    prometheus.Gauge
	expired     prometheus.Gauge
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	dispenses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_dispenses_total",
		Help: "Committed administrations by verification result and observation source.",
	}, []string{"verified", "source"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_dispense_rejections_total",
		Help: "Dispense attempts that ended without a ledger change.",
	}, []string{"reason"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_workflow_resolutions_total",
		Help: "Resolved supply and disposal workflows.",
	}, []string{"workflow"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mpadcs_low_stock_medications",
		Help: "Medications at or below their minimum threshold at the last alert scan.",
	})
	expired := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mpadcs_expired_medications",
		Help: "Medications past expiry at the last alert scan.",
	})
	reg.MustRegister(dispenses, rejections, resolutions, lowStock, expired)
	return &StockMetrics{
		dispenses:   dispenses,
		rejections:  rejections,
		resolutions: resolutions,
		lowStock:    lowStock,
		expired:     expired,
	}
}

// ObserveDispense counts a committed administration.
func (s *StockMetrics) ObserveDispense(verified bool, source string) {
	if s == nil || s.dispenses == nil {
		return
	}
	s.dispenses.WithLabelValues(strconv.FormatBool(verified), normalizeLabel(source)).Inc()
}

// ObserveRejection counts a dispense that was turned away.
func (s *StockMetrics) ObserveRejection(reason string) {
	if s == nil || s.rejections == nil {
		return
	}
	s.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveResolution counts a resolved workflow such as "supply" or "disposal".
func (s *StockMetrics) ObserveResolution(workflow string) {
	if s == nil || s.resolutions == nil {
		return
	}
	s.resolutions.WithLabelValues(normalizeLabel(workflow)).Inc()
}

// SetAlertCounts records the latest low-stock and expired totals.
func (s *StockMetrics) SetAlertCounts(lowStock, expired int) {
	if s == nil || s.lowStock == nil {
		return
	}
	s.lowStock.Set(float64(lowStock))
	s.expired.Set(float64(expired))
}
