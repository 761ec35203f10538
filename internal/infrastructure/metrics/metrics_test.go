package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/usage"
)

func TestCollectors_Observe(t *testing.T) {
	m := New()

	m.ObserveInvocation(domain.FeaturePrice, "openai", 120*time.Millisecond)
	m.ObserveInvocation(domain.FeaturePrice, domain.SourceFallback, time.Millisecond)
	m.ObserveAttempt("openai", domain.FeaturePrice, domain.StatusRetryableFailure)
	m.ObserveAttempt("openai", domain.FeaturePrice, domain.StatusRetryableFailure)
	m.ObserveCache(domain.FeaturePrice, true)
	m.ObserveCache(domain.FeaturePrice, false)
	m.ObserveCache(domain.FeaturePrice, false)
	m.ObserveShortCircuit(domain.FeatureMatch)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("price", "openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("price", "fallback")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("openai", "price", "retryable_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("price", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("price", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShortCircuits.WithLabelValues("match")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InvocationSeconds))
}

func TestCollectors_WatchUsage(t *testing.T) {
	m := New()
	ledger := usage.NewLedger()
	m.WatchUsage(ledger)

	ledger.Record("openai", domain.FeaturePrice, 1500, domain.CostFromDollars(0.003))
	ledger.RecordFailure("openai", domain.FeaturePrice)

	expected := `
# HELP ridepilot_usage_tokens Tokens consumed since the last ledger reset
# TYPE ridepilot_usage_tokens gauge
ridepilot_usage_tokens{feature="price",provider="openai"} 1500
# HELP ridepilot_usage_failed_attempts Failed provider attempts since the last ledger reset
# TYPE ridepilot_usage_failed_attempts gauge
ridepilot_usage_failed_attempts{feature="price",provider="openai"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"ridepilot_usage_tokens", "ridepilot_usage_failed_attempts"))

	ledger.Reset()
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP ridepilot_usage_tokens Tokens consumed since the last ledger reset
# TYPE ridepilot_usage_tokens gauge
ridepilot_usage_tokens{feature="price",provider="openai"} 0
`), "ridepilot_usage_tokens"))
}

func TestCollectors_FuncMetrics(t *testing.T) {
	m := New()
	var written, dropped int64 = 7, 2
	size := 3
	m.WatchMemory(func() int64 { return written }, func() int64 { return dropped })
	m.WatchCache(func() int { return size })

	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP ridepilot_memory_dropped_total Interactions dropped because the write queue was full or closed
# TYPE ridepilot_memory_dropped_total counter
ridepilot_memory_dropped_total 2
# HELP ridepilot_cache_entries Results currently held in the cache
# TYPE ridepilot_cache_entries gauge
ridepilot_cache_entries 3
`), "ridepilot_memory_dropped_total", "ridepilot_cache_entries"))
}

func TestCollectors_Handler(t *testing.T) {
	m := New()
	m.ObserveShortCircuit(domain.FeatureChat)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ridepilot_short_circuits_total{feature="chat"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
