package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the provisioning counters.
const (
	OutcomeSuccess   = "success"
	OutcomeSimulated = "simulated"
	OutcomeFailure   = "failure"
	OutcomeOrphaned  = "orphaned"
	OutcomeSkipped   = "skipped"
)

// ProvisioningMetrics exposes counters/histograms for meeting provisioning,
// meeting cleanup and provider credential refreshes.
type ProvisioningMetrics struct {
	provisionTotal  *prometheus.CounterVec
	cleanupTotal    *prometheus.CounterVec
	tokenTotal      *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

func NewProvisioningMetrics(reg prometheus.Registerer) *ProvisioningMetrics {
	m := &ProvisioningMetrics{
		provisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "appointments",
			Name:      "meeting_provision_total",
			Help:      "Remote appointment meeting provisioning attempts by outcome",
		}, []string{"outcome"}),
		cleanupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "appointments",
			Name:      "meeting_cleanup_total",
			Help:      "Meeting teardown attempts during appointment deletion by outcome",
		}, []string{"outcome"}),
		tokenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "meetings",
			Name:      "token_refresh_total",
			Help:      "Provider credential refreshes by source and outcome",
		}, []string{"source", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "meetings",
			Name:      "provider_request_seconds",
			Help:      "Latency of meeting provider API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.provisionTotal, m.cleanupTotal, m.tokenTotal, m.providerLatency)
	return m
}

func (m *ProvisioningMetrics) ObserveProvision(outcome string) {
	if m == nil {
		return
	}
	m.provisionTotal.WithLabelValues(outcome).Inc()
}

func (m *ProvisioningMetrics) ObserveCleanup(outcome string) {
	if m == nil {
		return
	}
	m.cleanupTotal.WithLabelValues(outcome).Inc()
}

// ObserveTokenRefresh records where a token came from ("provider", "shared")
// and whether the refresh produced a real or simulated credential.
func (m *ProvisioningMetrics) ObserveTokenRefresh(source, outcome string) {
	if m == nil {
		return
	}
	m.tokenTotal.WithLabelValues(source, outcome).Inc()
}

func (m *ProvisioningMetrics) ObserveProviderLatency(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation, status).Observe(seconds)
}
