package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CRMMetrics exposes counters/histograms for the lead intake and entitlement flows.
type CRMMetrics struct {
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
	webhookTotal       *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	entitlementTotal   *prometheus.CounterVec
	rateLimitedTotal   *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	trialsExpiredTotal prometheus.Counter
}

func NewCRMMetrics(reg prometheus.Registerer) *CRMMetrics {
	m := &CRMMetrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uppal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uppal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uppal",
			Subsystem: "webhooks",
			Name:      "deliveries_total",
			Help:      "Inbound webhook deliveries by profile and outcome",
		}, []string{"profile", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uppal",
			Subsystem: "webhooks",
			Name:      "processing_seconds",
			Help:      "Latency of webhook normalization and persistence",
			Buckets:   prometheus.DefBuckets,
		}, []string{"profile"}),
		entitlementTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uppal",
			Subsystem: "entitlements",
			Name:      "operations_total",
			Help:      "License and trial lifecycle operations",
		}, []string{"kind", "operation", "result"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uppal",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uppal",
			Subsystem: "webhooks",
			Name:      "queue_depth",
			Help:      "Pending webhook jobs last observed",
		}),
		trialsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uppal",
			Subsystem: "entitlements",
			Name:      "organization_trials_expired_total",
			Help:      "Organization trials flipped to expired by the sweeper",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.httpLatency, m.webhookTotal, m.webhookLatency, m.entitlementTotal, m.rateLimitedTotal, m.queueDepth, m.trialsExpiredTotal)
	return m
}

func (m *CRMMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *CRMMetrics) ObserveWebhook(profile, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if profile == "" {
		profile = "unknown"
	}
	m.webhookTotal.WithLabelValues(profile, status).Inc()
	m.webhookLatency.WithLabelValues(profile).Observe(elapsed.Seconds())
}

// ObserveEntitlement counts a lifecycle call. kind is "license", "trial" or "organization".
func (m *CRMMetrics) ObserveEntitlement(kind, operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.entitlementTotal.WithLabelValues(kind, operation, result).Inc()
}

func (m *CRMMetrics) ObserveRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(limiter).Inc()
}

func (m *CRMMetrics) SetQueueDepth(depth int64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *CRMMetrics) AddTrialsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.trialsExpiredTotal.Add(float64(n))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
