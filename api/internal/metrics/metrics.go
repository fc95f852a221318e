package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndpointHTTP     = "http"
	EndpointCallable = "callable"
	EndpointTelegram = "telegram"

	OutcomeOK               = "ok"
	OutcomeNoText           = "no_text"
	OutcomeBadRequest       = "bad_request"
	OutcomeUnauthenticated  = "unauthenticated"
	OutcomePermissionDenied = "permission_denied"
	OutcomeProviderError    = "provider_error"
)

type Metrics struct {
	requests        *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New регистрирует метрики в переданном реестре (в тестах — свой реестр).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocr_requests_total",
			Help: "OCR requests by entry point and outcome",
		}, []string{"endpoint", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ocr_provider_latency_seconds",
			Help:    "Latency of the text-detection provider call",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine"}),
	}
	reg.MustRegister(m.requests, m.providerLatency)
	return m
}

// Default — метрики в глобальном реестре prometheus, создаются один раз.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Request увеличивает счётчик; nil-safe.
func (m *Metrics) Request(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveProvider(engine string, started time.Time) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(engine).Observe(time.Since(started).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
