package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type DelegatorMetrics struct {
	// dispatch metrics
	dispatchedTasks *prometheus.CounterVec
	failedSends     *prometheus.CounterVec
	// response metrics
	responses       *prometheus.CounterVec
	failedApplies   *prometheus.CounterVec
	reapedStatuses  *prometheus.CounterVec
	pendingStatuses prometheus.Gauge
	// ledger and clock metrics
	lockedAmount               *prometheus.GaugeVec
	unlockingAmount            *prometheus.GaugeVec
	ongoingTimeUnit            *prometheus.GaugeVec
	registeredDelegators       *prometheus.GaugeVec
	secondsSinceLastResponse   *prometheus.GaugeVec
	secondsSinceLastTimeUpdate *prometheus.GaugeVec
	// time keeper
	mu                  sync.Mutex
	lastResponseByProto map[string]time.Time
	lastTimeUnitByProto map[string]time.Time
}

var (
	delegatorMetricsRegisterOnce sync.Once
	delegatorMetricsInstance     *DelegatorMetrics
)

// NewDelegatorMetrics returns the process-wide coordinator metrics,
// registering them with the default registry on first use.
func NewDelegatorMetrics() *DelegatorMetrics {
	delegatorMetricsRegisterOnce.Do(func() {
		delegatorMetricsInstance = &DelegatorMetrics{
			dispatchedTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "xcm_dispatched_tasks_total",
				Help: "The total number of tasks handed to the outbound channel",
			}, []string{"protocol", "task"}),
			failedSends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "xcm_failed_sends_total",
				Help: "The total number of tasks the outbound channel refused",
			}, []string{"protocol", "task"}),
			responses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "xcm_responses_total",
				Help: "The total number of responses matched to a pending status",
			}, []string{"protocol", "outcome"}),
			failedApplies: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "xcm_failed_applies_total",
				Help: "The total number of confirmed responses whose ledger change could not be applied",
			}, []string{"protocol"}),
			reapedStatuses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "xcm_reaped_pending_statuses_total",
				Help: "The total number of pending statuses discarded after timing out",
			}, []string{"protocol"}),
			pendingStatuses: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "xcm_pending_statuses",
				Help: "Current number of tasks awaiting a response",
			}),
			lockedAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "delegator_locked_amount",
				Help: "The locked amount mirrored for a delegator",
			}, []string{"protocol", "delegator"}),
			unlockingAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "delegator_unlocking_amount",
				Help: "The total unlocking amount mirrored for a delegator",
			}, []string{"protocol", "delegator"}),
			ongoingTimeUnit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "protocol_ongoing_time_unit",
				Help: "The time unit the remote protocol is currently observing",
			}, []string{"protocol"}),
			registeredDelegators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "protocol_registered_delegators",
				Help: "Current number of delegators registered for a protocol",
			}, []string{"protocol"}),
			secondsSinceLastResponse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "protocol_seconds_since_last_response",
				Help: "Seconds since the last response matched for a protocol",
			}, []string{"protocol"}),
			secondsSinceLastTimeUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "protocol_seconds_since_last_time_unit_update",
				Help: "Seconds since the ongoing time unit of a protocol was last updated",
			}, []string{"protocol"}),
			lastResponseByProto: make(map[string]time.Time),
			lastTimeUnitByProto: make(map[string]time.Time),
		}

		prometheus.MustRegister(delegatorMetricsInstance.dispatchedTasks)
		prometheus.MustRegister(delegatorMetricsInstance.failedSends)
		prometheus.MustRegister(delegatorMetricsInstance.responses)
		prometheus.MustRegister(delegatorMetricsInstance.failedApplies)
		prometheus.MustRegister(delegatorMetricsInstance.reapedStatuses)
		prometheus.MustRegister(delegatorMetricsInstance.pendingStatuses)
		prometheus.MustRegister(delegatorMetricsInstance.lockedAmount)
		prometheus.MustRegister(delegatorMetricsInstance.unlockingAmount)
		prometheus.MustRegister(delegatorMetricsInstance.ongoingTimeUnit)
		prometheus.MustRegister(delegatorMetricsInstance.registeredDelegators)
		prometheus.MustRegister(delegatorMetricsInstance.secondsSinceLastResponse)
		prometheus.MustRegister(delegatorMetricsInstance.secondsSinceLastTimeUpdate)
	})
	return delegatorMetricsInstance
}

// RecordDispatchedTask counts a task accepted by the outbound channel
func (m *DelegatorMetrics) RecordDispatchedTask(protocol, task string) {
	m.dispatchedTasks.WithLabelValues(protocol, task).Inc()
}

// RecordFailedSend counts a task the outbound channel refused
func (m *DelegatorMetrics) RecordFailedSend(protocol, task string) {
	m.failedSends.WithLabelValues(protocol, task).Inc()
}

// RecordResponse counts a matched response and remembers when it arrived
func (m *DelegatorMetrics) RecordResponse(protocol, outcome string) {
	m.responses.WithLabelValues(protocol, outcome).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastResponseByProto[protocol] = time.Now()
}

func (m *DelegatorMetrics) RecordFailedApply(protocol string) {
	m.failedApplies.WithLabelValues(protocol).Inc()
}

func (m *DelegatorMetrics) RecordReapedStatus(protocol string) {
	m.reapedStatuses.WithLabelValues(protocol).Inc()
}

func (m *DelegatorMetrics) SetPendingStatuses(n int) {
	m.pendingStatuses.Set(float64(n))
}

func (m *DelegatorMetrics) SetRegisteredDelegators(protocol string, n int) {
	m.registeredDelegators.WithLabelValues(protocol).Set(float64(n))
}

// RecordLedger records the mirrored amounts of a delegator. Amounts beyond
// float64 precision are approximated.
func (m *DelegatorMetrics) RecordLedger(protocol, delegator string, locked, unlocking float64) {
	m.lockedAmount.WithLabelValues(protocol, delegator).Set(locked)
	m.unlockingAmount.WithLabelValues(protocol, delegator).Set(unlocking)
}

// RemoveLedger drops the series of a deregistered delegator
func (m *DelegatorMetrics) RemoveLedger(protocol, delegator string) {
	m.lockedAmount.DeleteLabelValues(protocol, delegator)
	m.unlockingAmount.DeleteLabelValues(protocol, delegator)
}

// RecordOngoingTimeUnit records the protocol clock and when it moved
func (m *DelegatorMetrics) RecordOngoingTimeUnit(protocol string, value uint32) {
	m.ongoingTimeUnit.WithLabelValues(protocol).Set(float64(value))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTimeUnitByProto[protocol] = time.Now()
}

// UpdateElapsed refreshes the seconds-since gauges
func (m *DelegatorMetrics) UpdateElapsed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for protocol, last := range m.lastResponseByProto {
		m.secondsSinceLastResponse.WithLabelValues(protocol).Set(now.Sub(last).Seconds())
	}
	for protocol, last := range m.lastTimeUnitByProto {
		m.secondsSinceLastTimeUpdate.WithLabelValues(protocol).Set(now.Sub(last).Seconds())
	}
}
