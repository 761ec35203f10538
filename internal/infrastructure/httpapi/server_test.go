package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/credentials"
	"github.com/doeshing/ridepilot/internal/infrastructure/usage"
	"github.com/doeshing/ridepilot/internal/pkg/logger"
)

type recordingInvoker struct {
	mu          sync.Mutex
	feature     domain.Feature
	payload     map[string]any
	invalidated domain.Feature
}

func (r *recordingInvoker) Invoke(_ context.Context, feature domain.Feature, payload map[string]any) domain.OrchestrationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feature = feature
	r.payload = payload
	return domain.OrchestrationResult{
		Feature:    feature,
		Value:      map[string]any{feature.ResultKey(): 12.5},
		Source:     "heuristic",
		ComputedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *recordingInvoker) InvalidateFeature(feature domain.Feature) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = feature
	return 3
}

type fixedProber struct{ err error }

func (f fixedProber) Probe(context.Context, string) error { return f.err }

type fixture struct {
	invoker  *recordingInvoker
	ledger   *usage.Ledger
	registry *credentials.Registry
	handler  http.Handler
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		invoker:  &recordingInvoker{},
		ledger:   usage.NewLedger(),
		registry: credentials.NewRegistry(credentials.NewMemoryStore(), logger.Nop()),
	}
	f.registry.Register("openai", true, fixedProber{})
	f.registry.Register("heuristic", false, nil)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ridepilot_up 1\n"))
	})
	s := New(Deps{
		Invoker:     f.invoker,
		Usage:       f.ledger,
		Credentials: f.registry,
		Metrics:     metrics,
		Logger:      logger.Nop(),
	})
	f.handler = s.Handler()
	f.srv = httptest.NewServer(f.handler)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestInvoke(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/features/pricing", `{"distance":4.2,"time":11}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got domain.OrchestrationResult
	decode(t, resp, &got)
	assert.Equal(t, domain.FeaturePrice, got.Feature)
	assert.Equal(t, 12.5, got.Value["price"])
	assert.Equal(t, domain.FeaturePrice, f.invoker.feature)
	assert.Equal(t, 4.2, f.invoker.payload["distance"])
}

func TestInvoke_EmptyBodyIsEmptyPayload(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/v1/features/analytics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, f.invoker.payload)
	assert.Empty(t, f.invoker.payload)
}

func TestInvoke_RequestErrors(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/features/weather", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/v1/features/match", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e errorResponse
	decode(t, resp, &e)
	assert.Contains(t, e.Error, "JSON object")

	big := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/features/chat", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestInvoke_BodyLimitIsInclusive(t *testing.T) {
	f := newFixture(t)
	envelope := `{"message":""}`
	exact := `{"message":"` + strings.Repeat("a", maxBodyBytes-len(envelope)) + `"}`
	require.Len(t, exact, maxBodyBytes)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/features/chat", strings.NewReader(exact)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/features/chat", strings.NewReader(exact+" ")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestInvalidateCache(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodDelete, "/v1/cache/route", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	decode(t, resp, &got)
	assert.Equal(t, float64(3), got["invalidated"])
	assert.Equal(t, domain.FeatureRoute, f.invoker.invalidated)
}

func TestUsageAndReset(t *testing.T) {
	f := newFixture(t)
	f.ledger.Record("openai", domain.FeatureChat, 120, domain.CostFromDollars(0.00024))
	f.ledger.RecordFailure("openai", domain.FeatureChat)

	resp := f.do(t, http.MethodGet, "/v1/usage", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var before usageResponse
	decode(t, resp, &before)
	require.Len(t, before.Records, 1)
	assert.Equal(t, int64(120), before.Totals.TotalTokens)
	assert.Equal(t, int64(1), before.Totals.FailedAttempts)
	assert.Equal(t, domain.CostFromDollars(0.00024), before.Totals.TotalCost)

	resp = f.do(t, http.MethodPost, "/v1/usage/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var drained usageResponse
	decode(t, resp, &drained)
	assert.Equal(t, int64(1), drained.Totals.RequestCount)

	assert.Equal(t, domain.UsageRecord{}, f.ledger.Totals())
}

func TestCredentials(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/v1/credentials/openai", `{"secret":"sk-live-abcd1234"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/credentials", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []domain.CredentialStatus
	decode(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "openai", rows[1].ProviderID)
	assert.Equal(t, "****1234", rows[1].Masked)

	resp = f.do(t, http.MethodPost, "/v1/credentials/openai/validate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result domain.ValidationResult
	decode(t, resp, &result)
	assert.True(t, result.Valid)

	resp = f.do(t, http.MethodPut, "/v1/credentials/gemini", `{"secret":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/v1/credentials/gemini/validate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/v1/credentials/openai", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ridepilot_up")
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := New(Deps{Invoker: &recordingInvoker{}, Logger: logger.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
