package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the credit service collectors.
type Metrics struct {
	// Usage gate decisions by allowance type and result (allowed/denied).
	GateChecksTotal   *prometheus.CounterVec
	GateCheckDuration prometheus.Histogram

	// Redemption outcomes: success, not_found, already_used, error.
	RedemptionsTotal *prometheus.CounterVec
	CreditsGranted   prometheus.Counter

	CouponsCreatedTotal prometheus.Counter
	CouponsDeletedTotal prometheus.Counter

	GenerationLogsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GateChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidcrafter_gate_checks_total",
				Help: "Total number of generation permission checks",
			},
			[]string{"type", "result"},
		),
		GateCheckDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vidcrafter_gate_check_duration_seconds",
				Help:    "Duration of generation permission checks",
				Buckets: prometheus.DefBuckets,
			},
		),
		RedemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidcrafter_coupon_redemptions_total",
				Help: "Total number of coupon redemption attempts by outcome",
			},
			[]string{"outcome"},
		),
		CreditsGranted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidcrafter_credits_granted_total",
				Help: "Total generation credits granted through coupon redemption",
			},
		),
		CouponsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidcrafter_coupons_created_total",
				Help: "Total number of coupons issued",
			},
		),
		CouponsDeletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidcrafter_coupons_deleted_total",
				Help: "Total number of coupons deleted",
			},
		),
		GenerationLogsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidcrafter_generation_logs_total",
				Help: "Total generation attempts reported by clients",
			},
			[]string{"video_type", "status"},
		),
	}
}
