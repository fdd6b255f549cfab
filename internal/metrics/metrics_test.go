package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCRMMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCRMMetrics(reg)

	m.ObserveHTTP("POST", "/api/webhooks/leads", 201, 15*time.Millisecond)
	m.ObserveHTTP("POST", "/api/webhooks/leads", 400, time.Millisecond)
	m.ObserveWebhook("zapier", "processed", 5*time.Millisecond)
	m.ObserveWebhook("", "rejected", time.Millisecond)
	m.ObserveEntitlement("license", "extend", nil)
	m.ObserveEntitlement("license", "extend", errors.New("boom"))
	m.ObserveRateLimited("api_key")
	m.SetQueueDepth(7)
	m.AddTrialsExpired(2)
	m.AddTrialsExpired(0)

	if got := testutil.ToFloat64(m.webhookTotal.WithLabelValues("unknown", "rejected")); got != 1 {
		t.Fatalf("expected unknown profile bucket, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/webhooks/leads", "4xx")); got != 1 {
		t.Fatalf("expected one 4xx request, got %v", got)
	}
	if got := testutil.ToFloat64(m.entitlementTotal.WithLabelValues("license", "extend", "error")); got != 1 {
		t.Fatalf("expected one failed extend, got %v", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 7 {
		t.Fatalf("expected queue depth 7, got %v", got)
	}
	if got := testutil.ToFloat64(m.trialsExpiredTotal); got != 2 {
		t.Fatalf("expected 2 expired trials, got %v", got)
	}
}

func TestCRMMetricsNilSafe(t *testing.T) {
	var m *CRMMetrics
	m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	m.ObserveWebhook("generic", "failed", time.Millisecond)
	m.ObserveEntitlement("trial", "convert", nil)
	m.ObserveRateLimited("organization")
	m.SetQueueDepth(1)
	m.AddTrialsExpired(1)
}
