package metrics

// Gin middleware based on github.com/zsais/go-gin-prometheus, reduced to the
// request metrics plus the MetricsList descriptors.

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "HTTP requests processed, partitioned by status code, method and route.",
	Type:        "counter_vec",
	Args:        []string{"code", "method", "route"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"code", "method", "route"},
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "route"},
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "HTTP request sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "route"},
}

var standardMetrics = []*Metric{
	reqCnt,
	reqDur,
	resSz,
	reqSz,
}

var defaultMetricPath = "/metrics"

type Logger interface {
	Errorw(msg string, keysAndValues ...interface{})
}

// *zap.SugaredLogger satisfies Logger.
var _ Logger = (*zap.SugaredLogger)(nil)

// RouteLabelFn maps a request to its "route" label. It keeps path
// parameters out of the label set.
type RouteLabelFn func(c *gin.Context) string

// Prometheus holds the registered request collectors and where /metrics is served.
type Prometheus struct {
	reqCnt        *prometheus.CounterVec
	reqDur        *prometheus.HistogramVec
	reqSz, resSz  *prometheus.SummaryVec
	router        *gin.Engine
	listenAddress string

	MetricsList  []*Metric
	MetricsPath  string
	RouteLabelFn RouteLabelFn

	logger Logger
}

type NewPrometheusOptions struct {
	Subsystem    string
	MetricsList  []*Metric
	MetricsPath  string
	RouteLabelFn RouteLabelFn
	Logger       Logger
}

// NewPrometheus registers the request metrics and options.MetricsList under subsystem.
func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsList:  append(append([]*Metric(nil), options.MetricsList...), standardMetrics...),
		MetricsPath:  options.MetricsPath,
		RouteLabelFn: options.RouteLabelFn,
		logger:       options.Logger,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.RouteLabelFn == nil {
		p.RouteLabelFn = FullPathLabel
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}

	p.registerMetrics(options.Subsystem)
	return p
}

// FullPathLabel labels a request with its gin route template, falling back
// to the raw path for unmatched routes.
func FullPathLabel(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// SetListenAddress serves /metrics on a separate address instead of the
// API engine.
func (p *Prometheus) SetListenAddress(address string) {
	p.listenAddress = address
	if p.listenAddress != "" {
		p.router = gin.New()
		p.router.Use(gin.Recovery())
	}
}

// SetMetricsPath mounts the metrics handler.
func (p *Prometheus) SetMetricsPath(e *gin.Engine) {
	if p.listenAddress != "" {
		p.router.GET(p.MetricsPath, prometheusHandler())
		p.runServer()
	} else {
		e.GET(p.MetricsPath, prometheusHandler())
	}
}

func (p *Prometheus) runServer() {
	go func() {
		if err := p.router.Run(p.listenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorw("metrics server stopped", "addr", p.listenAddress, "err", err)
		}
	}()
}

func (p *Prometheus) registerMetrics(subsystem string) {
	for _, metricDef := range p.MetricsList {
		metric := NewMetric(metricDef, subsystem)
		if err := prometheus.Register(metric); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				metric = are.ExistingCollector
			} else {
				p.logger.Errorw("metric could not be registered", "metric", metricDef.Name, "err", err)
			}
		}
		switch metricDef {
		case reqCnt:
			p.reqCnt = metric.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = metric.(*prometheus.HistogramVec)
		case resSz:
			p.resSz = metric.(*prometheus.SummaryVec)
		case reqSz:
			p.reqSz = metric.(*prometheus.SummaryVec)
		}
		metricDef.MetricCollector = metric
	}
}

// Use adds the middleware to a gin engine.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	p.SetMetricsPath(e)
}

// HandlerFunc records the request metrics.
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		reqSz := computeApproximateRequestSize(c.Request)

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		route := p.RouteLabelFn(c)

		p.reqDur.WithLabelValues(status, c.Request.Method, route).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, c.Request.Method, route).Inc()
		p.reqSz.WithLabelValues(status, c.Request.Method, route).Observe(float64(reqSz))
		p.resSz.WithLabelValues(status, c.Request.Method, route).Observe(float64(c.Writer.Size()))
	}
}
