package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eftview"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	parseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_total",
			Help:      "Transactions parsed, by outcome.",
		},
		[]string{"outcome"},
	)
	decodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_total",
			Help:      "Image decodes, by compression and outcome.",
		},
		[]string{"compression", "outcome"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Image decode duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"compression"},
	)
	validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_total",
			Help:      "Profile validations, by profile and verdict.",
		},
		[]string{"profile", "verdict"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, parseTotal, decodeTotal, decodeDuration, validationTotal)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordParse counts one parse attempt. outcome is "ok" or "error".
func RecordParse(ok bool) {
	RegisterMetrics()
	parseTotal.WithLabelValues(outcome(ok)).Inc()
}

func RecordValidation(profile, verdict string) {
	RegisterMetrics()
	validationTotal.WithLabelValues(profile, verdict).Inc()
}

// DecodeMetrics reports image decodes to Prometheus. It satisfies the
// imaging package's observer hook.
type DecodeMetrics struct{}

func (DecodeMetrics) ObserveDecode(compression string, ok bool, duration time.Duration) {
	RegisterMetrics()
	decodeTotal.WithLabelValues(compression, outcome(ok)).Inc()
	decodeDuration.WithLabelValues(compression).Observe(duration.Seconds())
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
