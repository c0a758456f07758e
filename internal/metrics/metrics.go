package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/samvad-hq/oddsapi-go/pkg/oddsapi"
)

const namespace = "oddsapi"

// Recorder counts upstream requests and tracks the last quota headers seen.
// It implements oddsapi.Observer.
type Recorder struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	remaining prometheus.Gauge
	used      prometheus.Gauge
}

var _ oddsapi.Observer = (*Recorder)(nil)

// NewRecorder registers the collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Upstream requests by operation and HTTP status (error for transport failures).",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Upstream request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_remaining",
			Help:      "Last x-requests-remaining value reported upstream.",
		}),
		used: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_used",
			Help:      "Last x-requests-used value reported upstream.",
		}),
	}
	r.registry.MustRegister(r.requests, r.duration, r.remaining, r.used)
	return r
}

// ObserveRequest implements oddsapi.Observer.
func (r *Recorder) ObserveRequest(op oddsapi.Operation, statusCode int, elapsed time.Duration, header http.Header) {
	if r == nil {
		return
	}
	code := "error"
	if statusCode >= 0 {
		code = strconv.Itoa(statusCode)
	}
	r.requests.WithLabelValues(string(op), code).Inc()
	r.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())

	if header == nil {
		return
	}
	if v, ok := parseHeaderNumber(header.Get(oddsapi.HeaderRequestsRemaining)); ok {
		r.remaining.Set(v)
	}
	if v, ok := parseHeaderNumber(header.Get(oddsapi.HeaderRequestsUsed)); ok {
		r.used.Set(v)
	}
}

// Registry exposes the underlying registry, e.g. for promhttp or tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Requests exposes the request counter.
func (r *Recorder) Requests() *prometheus.CounterVec { return r.requests }

// Push sends the current values to a Prometheus pushgateway under job.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if r == nil || strings.TrimSpace(gatewayURL) == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	if err := push.New(gatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// The quota headers are documented as integers but may carry decimals on
// fractional-cost endpoints.
func parseHeaderNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
