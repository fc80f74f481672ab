package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	return string(body)
}

func TestInstrumentHandlerRecordsRequests(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handler := collector.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/api/models", "/api/models", "/missing"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, collector)

	if !strings.Contains(body, `modelarena_http_requests_total{method="GET",path="/api/models",status="200"} 2`) {
		t.Errorf("missing request counter for /api/models:\n%s", body)
	}
	if !strings.Contains(body, `modelarena_http_requests_total{method="GET",path="/missing",status="404"} 1`) {
		t.Errorf("missing request counter for /missing:\n%s", body)
	}
	if !strings.Contains(body, "modelarena_http_request_duration_seconds") {
		t.Error("missing request duration histogram")
	}
}

func TestRecordModelCall(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.RecordModelCall("openai", "gpt-4o", "success", 120, 40)
	collector.RecordModelCall("openai", "gpt-4o", "success", 80, 10)
	collector.RecordModelCall("anthropic", "claude-sonnet", "failed", 0, 0)

	body := scrape(t, collector)

	if !strings.Contains(body, `modelarena_provider_requests_total{model="gpt-4o",provider="openai",status="success"} 2`) {
		t.Errorf("missing provider call counter:\n%s", body)
	}
	if !strings.Contains(body, `modelarena_provider_requests_total{model="claude-sonnet",provider="anthropic",status="failed"} 1`) {
		t.Errorf("missing failed call counter:\n%s", body)
	}
	if !strings.Contains(body, `modelarena_provider_tokens_total{direction="input",model="gpt-4o",provider="openai"} 200`) {
		t.Errorf("missing input token counter:\n%s", body)
	}
	if !strings.Contains(body, `modelarena_provider_tokens_total{direction="output",model="gpt-4o",provider="openai"} 50`) {
		t.Errorf("missing output token counter:\n%s", body)
	}
}

func TestInstrumentHandlerPreservesFlusher(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	var flushable bool
	handler := collector.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stream", nil))

	if !flushable {
		t.Error("expected wrapped writer to remain flushable for streaming handlers")
	}
}
