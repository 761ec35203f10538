// Package metrics exposes orchestration telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

const namespace = "ridepilot"

// Collectors implements ports.Metrics on its own registry, so several
// instances (and tests) never collide on the global one.
type Collectors struct {
	registry *prometheus.Registry

	// Invocations counts finished invocations.
	// Labels: feature, source (provider id or "fallback")
	Invocations *prometheus.CounterVec

	// InvocationSeconds measures end-to-end invocation latency, cache hits included.
	InvocationSeconds *prometheus.HistogramVec

	// ProviderAttempts counts individual provider calls.
	// Labels: provider, feature, status (success, retryable_failure, fatal_failure)
	ProviderAttempts *prometheus.CounterVec

	// CacheLookups counts cache reads. Labels: feature, result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// ShortCircuits counts invalid inputs answered without any provider.
	ShortCircuits *prometheus.CounterVec
}

// New registers every collector on a fresh registry along with the Go runtime collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Feature invocations by feature and answering source",
			},
			[]string{"feature", "source"},
		),
		InvocationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Time to resolve a feature invocation in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"feature"},
		),
		ProviderAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider calls by outcome",
			},
			[]string{"provider", "feature", "status"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"feature", "result"},
		),
		ShortCircuits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "short_circuits_total",
				Help:      "Invocations rejected as invalid input before any provider call",
			},
			[]string{"feature"},
		),
	}
}

func (c *Collectors) ObserveInvocation(feature domain.Feature, source string, elapsed time.Duration) {
	c.Invocations.WithLabelValues(string(feature), source).Inc()
	c.InvocationSeconds.WithLabelValues(string(feature)).Observe(elapsed.Seconds())
}

func (c *Collectors) ObserveAttempt(providerID string, feature domain.Feature, status domain.Status) {
	c.ProviderAttempts.WithLabelValues(providerID, string(feature), string(status)).Inc()
}

func (c *Collectors) ObserveCache(feature domain.Feature, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(string(feature), result).Inc()
}

func (c *Collectors) ObserveShortCircuit(feature domain.Feature) {
	c.ShortCircuits.WithLabelValues(string(feature)).Inc()
}

// WatchMemory exports the interaction queue counters.
func (c *Collectors) WatchMemory(written, dropped func() int64) {
	factory := promauto.With(c.registry)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "written_total",
		Help:      "Interactions persisted to the store",
	}, func() float64 { return float64(written()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "dropped_total",
		Help:      "Interactions dropped because the write queue was full or closed",
	}, func() float64 { return float64(dropped()) })
}

// WatchCache exports the current number of cached results.
func (c *Collectors) WatchCache(size func() int) {
	promauto.With(c.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Results currently held in the cache",
	}, func() float64 { return float64(size()) })
}

// WatchUsage exports the usage ledger rows at scrape time.
func (c *Collectors) WatchUsage(ledger ports.UsageLedger) {
	c.registry.MustRegister(newUsageCollector(ledger))
}

// Registry is the registry backing these collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

var _ ports.Metrics = (*Collectors)(nil)
