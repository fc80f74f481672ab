package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and
// outbound provider calls.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	modelCallTotal  *prometheus.CounterVec
	modelTokens     *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "modelarena",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelarena",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	modelCallTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelarena",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Total number of completed provider calls.",
	}, []string{"provider", "model", "status"})

	modelTokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelarena",
		Subsystem: "provider",
		Name:      "tokens_total",
		Help:      "Total tokens exchanged with providers.",
	}, []string{"provider", "model", "direction"})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, modelCallTotal, modelTokens} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		modelCallTotal:  modelCallTotal,
		modelTokens:     modelTokens,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordModelCall records one completed provider call and its token counts.
func (c *Collector) RecordModelCall(provider, model, status string, tokensInput, tokensOutput int) {
	c.modelCallTotal.WithLabelValues(provider, model, status).Inc()
	c.modelTokens.WithLabelValues(provider, model, "input").Add(float64(tokensInput))
	c.modelTokens.WithLabelValues(provider, model, "output").Add(float64(tokensOutput))
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards flushes so streaming responses are not buffered by the
// instrumentation wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
