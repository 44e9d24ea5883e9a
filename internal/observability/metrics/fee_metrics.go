package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// FeeMetrics tracks the fee engine's primary operations and, in particular,
// the non-fatal failure paths (audit appends, notifications) that must be
// watched from outside the process.
type FeeMetrics struct {
	auditAppendFailures  *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	carryForwards        *prometheus.CounterVec
	carriedAmount        prometheus.Counter
	paymentAllocations   *prometheus.CounterVec
	promotions           *prometheus.CounterVec
	agingRefreshed       prometheus.Counter
	openBalanceByBucket  *prometheus.GaugeVec
}

var (
	feeMetricsOnce sync.Once
	feeMetrics     *FeeMetrics
)

// Fees returns the process-wide instance registered on the default registerer.
func Fees(cfg Config) *FeeMetrics {
	feeMetricsOnce.Do(func() {
		feeMetrics = NewFeeMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return feeMetrics
}

func NewFeeMetrics(registerer prometheus.Registerer, cfg Config) *FeeMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "feeledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &FeeMetrics{
		auditAppendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "feeledger_audit_append_failures_total",
			Help:        "Audit entries that could not be persisted while the primary operation committed.",
			ConstLabels: constLabels,
		}, []string{"action"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "feeledger_notification_failures_total",
			Help:        "Notification requests rejected by the sink.",
			ConstLabels: constLabels,
		}, []string{"category"}),
		carryForwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "feeledger_carry_forward_total",
			Help:        "Carry-forward attempts by result.",
			ConstLabels: constLabels,
		}, []string{"result"}), // success | duplicate | failed
		carriedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "feeledger_carry_forward_amount_total",
			Help:        "Sum of balances moved into carried-forward dues.",
			ConstLabels: constLabels,
		}),
		paymentAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "feeledger_payment_allocations_total",
			Help:        "Dues touched by payment allocation, by whether the allocation was capped.",
			ConstLabels: constLabels,
		}, []string{"capped"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "feeledger_promotions_total",
			Help:        "Per-student promotion outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		agingRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "feeledger_aging_refreshed_total",
			Help:        "Dues updated by the aging sweep.",
			ConstLabels: constLabels,
		}),
		openBalanceByBucket: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "feeledger_open_balance",
			Help:        "Outstanding balance per aging bucket as of the last report.",
			ConstLabels: constLabels,
		}, []string{"bucket"}),
	}

	registerer.MustRegister(
		m.auditAppendFailures,
		m.notificationFailures,
		m.carryForwards,
		m.carriedAmount,
		m.paymentAllocations,
		m.promotions,
		m.agingRefreshed,
		m.openBalanceByBucket,
	)
	return m
}

func (m *FeeMetrics) IncAuditAppendFailure(action string) {
	if m == nil {
		return
	}
	m.auditAppendFailures.WithLabelValues(action).Inc()
}

func (m *FeeMetrics) IncNotificationFailure(category string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(category).Inc()
}

func (m *FeeMetrics) ObserveCarryForward(result string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.carryForwards.WithLabelValues(result).Inc()
	if amount.IsPositive() {
		m.carriedAmount.Add(amount.InexactFloat64())
	}
}

func (m *FeeMetrics) IncPaymentAllocation(capped bool) {
	if m == nil {
		return
	}
	label := "false"
	if capped {
		label = "true"
	}
	m.paymentAllocations.WithLabelValues(label).Inc()
}

func (m *FeeMetrics) IncPromotion(outcome string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

func (m *FeeMetrics) AddAgingRefreshed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.agingRefreshed.Add(float64(n))
}

func (m *FeeMetrics) SetOpenBalance(bucket string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.openBalanceByBucket.WithLabelValues(bucket).Set(amount.InexactFloat64())
}
