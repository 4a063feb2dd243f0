package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingRequestsTotal counts pricing calls by engine mode and outcome.
	PricingRequestsTotal *prometheus.CounterVec
	// PricingDuration records engine latency in milliseconds by mode.
	PricingDuration *prometheus.HistogramVec
	// RuleResolutionTotal counts decoration rule resolution outcomes.
	RuleResolutionTotal *prometheus.CounterVec
	// CartRecalculationsTotal counts orchestrator runs by trigger.
	CartRecalculationsTotal *prometheus.CounterVec
	// RepriceTasksTotal counts reprice worker task outcomes.
	RepriceTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_requests_total",
			Help:      "Count of unit price calculations by engine mode and result.",
		}, []string{"mode", "result"})
		PricingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_duration_ms",
			Help:      "Latency of unit price calculations in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"mode"})
		RuleResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_resolution_total",
			Help:      "Count of decoration rule resolution outcomes.",
		}, []string{"outcome"})
		CartRecalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_recalculations_total",
			Help:      "Count of cart recalculation runs by trigger.",
		}, []string{"trigger"})
		RepriceTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprice_tasks_total",
			Help:      "Count of processed reprice tasks by outcome.",
		}, []string{"result"})

		register(reg, PricingRequestsTotal)
		register(reg, PricingDuration)
		register(reg, RuleResolutionTotal)
		register(reg, CartRecalculationsTotal)
		register(reg, RepriceTasksTotal)
	})
}
