package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAccumulates(t *testing.T) {
	c := NewCollector()
	ctr := c.Counter("turns_total", "turns", "")
	ctr.Inc()
	ctr.Add(2)
	if got := ctr.Value(); got != 3 {
		t.Fatalf("counter value = %d, want 3", got)
	}
	if again := c.Counter("turns_total", "turns", ""); again != ctr {
		t.Fatalf("same series returned a different counter")
	}
}

func TestGaugeSetAndDec(t *testing.T) {
	c := NewCollector()
	g := c.Gauge("active", "active conversations", "")
	g.Set(5)
	g.Dec()
	if got := g.Value(); got != 4 {
		t.Fatalf("gauge value = %d, want 4", got)
	}
}

func TestHistogramBuckets(t *testing.T) {
	c := NewCollector()
	h := c.Histogram("latency", "latency", "", []float64{1, 10})
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50)

	if h.count != 3 {
		t.Fatalf("count = %d, want 3", h.count)
	}
	if h.buckets[0].count != 1 {
		t.Fatalf("le=1 bucket = %d, want 1", h.buckets[0].count)
	}
	if h.buckets[1].count != 2 {
		t.Fatalf("le=10 bucket = %d, want 2", h.buckets[1].count)
	}
}

func TestHandlerRendersExposition(t *testing.T) {
	c := NewCollector()
	c.Counter("assistant_turns_total", "Inbound turns processed", "").Add(7)
	c.Gauge("assistant_ws_conns", "Open widget sockets", `channel="web"`).Set(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"assistant_uptime_seconds",
		"# TYPE assistant_turns_total counter",
		"assistant_turns_total 7",
		`assistant_ws_conns{channel="web"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
}
