package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

const namespace = "bigocean"

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing, so callers never need to guard their calls.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	apiErrors   *prometheus.CounterVec

	budgetPauses      prometheus.Counter
	rateLimited       prometheus.Counter
	steering          *prometheus.CounterVec
	orchestratorDur   *prometheus.HistogramVec
	evidencePersisted prometheus.Counter
	finalizations     *prometheus.CounterVec

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec
	costUSD     *prometheus.CounterVec

	redisUp prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide metrics when enabled; otherwise it returns nil.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
	})
	return instance
}

func Current() *Metrics {
	return instance
}

// NewMetrics registers all collectors on reg. Tests pass a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "requests_total",
			Help: "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
			Help:    "API request latency by method, route and status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "api", Name: "inflight_requests",
			Help: "In-flight API requests.",
		}),
		apiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "errors_total",
			Help: "API error responses by route and machine code.",
		}, []string{"route", "code"}),
		budgetPauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "guard", Name: "budget_pauses_total",
			Help: "Messages rejected because the daily cost budget was exhausted.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "guard", Name: "rate_limited_total",
			Help: "Assessment starts rejected by the daily start limit.",
		}),
		steering: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orchestrator", Name: "steering_decisions_total",
			Help: "Steering decisions by outcome (steered or none).",
		}, []string{"outcome"}),
		orchestratorDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "orchestrator", Name: "operation_duration_seconds",
			Help:    "Orchestrator operation latency by operation and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		evidencePersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orchestrator", Name: "evidence_persisted_total",
			Help: "Facet evidence records persisted by analysis runs.",
		}),
		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "finalization", Name: "outcomes_total",
			Help: "GenerateResults outcomes.",
		}, []string{"outcome"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "requests_total",
			Help: "LLM requests by model, endpoint and status.",
		}, []string{"model", "endpoint", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "llm", Name: "request_duration_seconds",
			Help:    "LLM request latency by model and endpoint.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"model", "endpoint"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "tokens_total",
			Help: "LLM tokens by model and direction.",
		}, []string{"model", "direction"}),
		costUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cost", Name: "usd_total",
			Help: "Incurred LLM cost in USD by source.",
		}, []string{"source"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "redis", Name: "up",
			Help: "1 when the last Redis ping succeeded.",
		}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.budgetPauses, m.rateLimited, m.steering, m.orchestratorDur, m.evidencePersisted, m.finalizations,
		m.llmRequests, m.llmLatency, m.llmTokens, m.costUSD,
		m.redisUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAPIError(route, code string) {
	if m == nil {
		return
	}
	m.apiErrors.WithLabelValues(route, code).Inc()
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncBudgetPaused() {
	if m == nil {
		return
	}
	m.budgetPauses.Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) IncSteering(steered bool) {
	if m == nil {
		return
	}
	outcome := "none"
	if steered {
		outcome = "steered"
	}
	m.steering.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOrchestrator(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.orchestratorDur.WithLabelValues(operation, status).Observe(dur.Seconds())
}

func (m *Metrics) AddEvidencePersisted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evidencePersisted.Add(float64(n))
}

func (m *Metrics) IncFinalization(outcome string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	m.llmLatency.WithLabelValues(model, endpoint).Observe(dur.Seconds())
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func (m *Metrics) AddCost(source string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.costUSD.WithLabelValues(source).Add(usd)
}

// StartRedisCollector pings Redis every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := rdb.Ping(pctx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				log.Debug("redis ping failed", "error", err)
			} else {
				m.redisUp.Set(1)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
