package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func prometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// computeApproximateRequestSize mirrors the estimate used by promhttp.
func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}

// Inc adds one to a counter metric.
func Inc(m *Metric, labels ...string) {
	Add(m, 1, labels...)
}

// Add adds v to a counter metric. Unregistered metrics are skipped.
func Add(m *Metric, v float64, labels ...string) {
	switch c := m.MetricCollector.(type) {
	case *prometheus.CounterVec:
		c.WithLabelValues(labels...).Add(v)
	case prometheus.Counter:
		c.Add(v)
	}
}

// Observe records v on a histogram or summary metric. Unregistered metrics are skipped.
func Observe(m *Metric, v float64, labels ...string) {
	switch c := m.MetricCollector.(type) {
	case *prometheus.HistogramVec:
		c.WithLabelValues(labels...).Observe(v)
	case *prometheus.SummaryVec:
		c.WithLabelValues(labels...).Observe(v)
	}
}

// ObserveBusinessProcess records the latency since start on MetricsBusinessProcess.
func ObserveBusinessProcess(kind, subtype string, start time.Time) {
	Observe(MetricsBusinessProcess, MillisecondsSince(start), kind, subtype)
}
