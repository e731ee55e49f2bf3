package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/api/cart", "200", time.Millisecond)
	m.ObserveOrderSubmission(time.Second, nil)
	m.IncCatalogRefresh(errors.New("down"))
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics should write nothing: %v", err)
	}
}

func TestOrderSubmissionCounters(t *testing.T) {
	m := newMetrics()
	m.ObserveOrderSubmission(200*time.Millisecond, nil)
	m.ObserveOrderSubmission(time.Second, errors.New("intake down"))
	m.ObserveOrderSubmission(300*time.Millisecond, nil)
	m.IncOrderRejected("in_flight")

	if got := m.orderSubmissions.Value("success"); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := m.orderSubmissions.Value("failure"); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}
	if got := m.orderSubmissions.Value("rejected_in_flight"); got != 1 {
		t.Fatalf("rejected count = %v, want 1", got)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/checkout/submit", "502", 50*time.Millisecond)
	m.IncServiceRequest("plaza", nil)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`estrella_api_requests_total{method="POST",route="/api/checkout/submit",status="502"} 1.000000`,
		`estrella_api_request_duration_seconds_bucket{method="POST",route="/api/checkout/submit",le="0.05"} 1`,
		`estrella_service_requests_total{tariff="plaza",outcome="success"} 1.000000`,
		"# TYPE estrella_sse_clients gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
	if m.apiReqError.Value() != 1 {
		t.Fatalf("5xx should count as an error")
	}
}
