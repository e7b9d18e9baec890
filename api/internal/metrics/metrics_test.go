package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIdentification(t *testing.T) {
	m := New()
	m.ObserveIdentification(OutcomeSuccess)
	m.ObserveIdentification(OutcomeSuccess)
	m.ObserveIdentification(OutcomeOversize)

	if got := testutil.ToFloat64(m.Identifications.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Identifications.WithLabelValues(OutcomeOversize)); got != 1 {
		t.Errorf("oversize = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveIdentification(OutcomeFailure)
	m.ObserveModelCall("openai", 1)
	m.ObserveHTTP("/", "200")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveModelCall("openai", 0.7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "hazard_model_call_seconds") {
		t.Errorf("metrics output misses model latency histogram:\n%s", body)
	}
}
