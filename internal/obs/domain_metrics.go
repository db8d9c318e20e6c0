package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TicketTransactionsTotal counts posted ticket transactions by outcome.
	TicketTransactionsTotal *prometheus.CounterVec
	// TicketStateTransitions counts ticket open/closed transitions.
	TicketStateTransitions *prometheus.CounterVec
	// LayawayResolvedTotal counts layaway tenders whose amount was back-computed.
	LayawayResolvedTotal prometheus.Counter
	// SettlementLatency records settlement computation latency in milliseconds.
	SettlementLatency prometheus.Histogram
	// ReportBuildsTotal counts EOD report builds by type and source.
	ReportBuildsTotal *prometheus.CounterVec
	// RollupTasksTotal counts rollup task executions by outcome.
	RollupTasksTotal *prometheus.CounterVec
	// ExportDeliveriesTotal counts EOD export webhook deliveries by outcome.
	ExportDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TicketTransactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_transactions_total",
			Help:      "Count of posted ticket transactions by type and result.",
		}, []string{"type", "result"})
		TicketStateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_state_transitions_total",
			Help:      "Count of ticket lifecycle transitions by target state.",
		}, []string{"to"})
		LayawayResolvedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layaway_resolved_total",
			Help:      "Number of layaway tenders resolved from a desired post-tax total.",
		})
		SettlementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_ms",
			Help:      "Latency of full ticket settlement recomputation in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})
		ReportBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_builds_total",
			Help:      "Count of EOD report builds by report type and data source.",
		}, []string{"type", "source"})
		RollupTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollup_tasks_total",
			Help:      "Count of report rollup task executions by outcome.",
		}, []string{"result"})
		ExportDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eod_export_deliveries_total",
			Help:      "Count of EOD export webhook deliveries by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, TicketTransactionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TicketTransactionsTotal = v
			}
		})
		mustRegisterCollector(reg, TicketStateTransitions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TicketStateTransitions = v
			}
		})
		mustRegisterCollector(reg, LayawayResolvedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LayawayResolvedTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SettlementLatency = v
			}
		})
		mustRegisterCollector(reg, ReportBuildsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportBuildsTotal = v
			}
		})
		mustRegisterCollector(reg, RollupTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RollupTasksTotal = v
			}
		})
		mustRegisterCollector(reg, ExportDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ExportDeliveriesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
