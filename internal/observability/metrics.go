package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "binlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binlens",
			Subsystem: "decode",
			Name:      "total",
			Help:      "Decodes by format and outcome.",
		},
		[]string{"format", "outcome"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "binlens",
			Subsystem: "decode",
			Name:      "duration_seconds",
			Help:      "Decode duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"format"},
	)
	anomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binlens",
			Subsystem: "decode",
			Name:      "anomalies_total",
			Help:      "Recoverable anomalies by format and kind.",
		},
		[]string{"format", "kind"},
	)
	fieldWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binlens",
			Subsystem: "session",
			Name:      "field_writes_total",
			Help:      "Field writes by format and outcome.",
		},
		[]string{"format", "outcome"},
	)
	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "binlens",
			Subsystem: "session",
			Name:      "open",
			Help:      "Sessions currently held by the store.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, decodes, decodeDuration, anomalies, fieldWrites, openSessions)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDecode counts one decode. Failed format lookups pass a zero duration
// and are not timed.
func RecordDecode(format, outcome string, duration time.Duration) {
	RegisterMetrics()
	decodes.WithLabelValues(format, outcome).Inc()
	if duration > 0 {
		decodeDuration.WithLabelValues(format).Observe(duration.Seconds())
	}
}

func RecordAnomaly(format, kind string) {
	RegisterMetrics()
	anomalies.WithLabelValues(format, kind).Inc()
}

func RecordFieldWrite(format, outcome string) {
	RegisterMetrics()
	fieldWrites.WithLabelValues(format, outcome).Inc()
}

func SetOpenSessions(n int) {
	RegisterMetrics()
	openSessions.Set(float64(n))
}
