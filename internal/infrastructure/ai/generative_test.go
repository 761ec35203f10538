package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

type stubCredentials struct {
	secret string
}

func (s stubCredentials) IsAvailable(string) bool { return s.secret != "" }

func (s stubCredentials) Secret(id string) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingCredential, id)
	}
	return s.secret, nil
}

func chatResponse(content string, tokens int) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": tokens - 5, "completion_tokens": 5, "total_tokens": tokens},
	})
	return string(body)
}

func errorResponse(code, typ string) string {
	return fmt.Sprintf(`{"error":{"message":"nope","type":%q,"code":%q}}`, typ, code)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, secret string) (*generativeProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	def := domain.ProviderDefinition{
		ID:              "openai",
		Kind:            domain.ProviderKindOpenAI,
		Endpoint:        srv.URL + "/v1",
		ModelID:         "gpt-4o-mini",
		CostPer1KTokens: 0.002,
	}
	return newGenerativeProvider(def, stubCredentials{secret: secret}, srv.Client()), srv
}

func priceRequest() ports.ProviderRequest {
	return ports.ProviderRequest{
		Feature: domain.FeaturePrice,
		Payload: map[string]any{"distance": 8.5, "time": 25},
		Context: "[2026-01-01T00:00:00Z] Q: earlier\nA: answer",
	}
}

func TestGenerative_Success(t *testing.T) {
	var seen map[string]any
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &seen))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse("```json\n{\"price\": 21.35, \"surge_multiplier\": 1.2}\n```", 1500))
	}, "sk-test")

	res := p.Call(context.Background(), priceRequest())
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "openai", res.ProviderID)
	assert.Equal(t, 21.35, res.Value["price"])
	assert.Equal(t, 1500, res.TokensUsed)
	assert.Equal(t, domain.Cost(3000), res.Cost)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	messages := seen["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "Q: earlier")
	assert.Contains(t, user, `"distance": 8.5`)
}

func TestGenerative_FailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus domain.Status
		wantKind   domain.ErrorKind
	}{
		{"unauthorized", 401, errorResponse("invalid_api_key", "invalid_request_error"), domain.StatusFatalFailure, domain.ErrorKindAuth},
		{"rate limited", 429, errorResponse("rate_limit_exceeded", "requests"), domain.StatusRetryableFailure, domain.ErrorKindRateLimit},
		{"quota", 429, errorResponse("insufficient_quota", "insufficient_quota"), domain.StatusFatalFailure, domain.ErrorKindQuotaExhausted},
		{"server", 503, errorResponse("", "server_error"), domain.StatusRetryableFailure, domain.ErrorKindServer},
		{"bad request", 400, errorResponse("", "invalid_request_error"), domain.StatusFatalFailure, domain.ErrorKindMalformedRequest},
		{"not json content", 200, chatResponse("sure thing!", 10), domain.StatusFatalFailure, domain.ErrorKindMalformedResponse},
		{"missing key", 200, chatResponse(`{"total": 3}`, 10), domain.StatusFatalFailure, domain.ErrorKindMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, "sk-test")

			res := p.Call(context.Background(), priceRequest())
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantKind, res.ErrorKind)
			assert.Error(t, res.Err)
		})
	}
}

func TestGenerative_TimeoutIsRetryable(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "sk-test")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := p.Call(ctx, priceRequest())
	assert.Equal(t, domain.StatusRetryableFailure, res.Status)
	assert.Equal(t, domain.ErrorKindTimeout, res.ErrorKind)
}

func TestGenerative_MissingCredentialMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	res := p.Call(context.Background(), priceRequest())
	assert.Equal(t, domain.StatusFatalFailure, res.Status)
	assert.Equal(t, domain.ErrorKindMissingCredential, res.ErrorKind)
	assert.Zero(t, calls.Load())
}

func TestGenerative_ClientSideRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, chatResponse(`{"price": 10}`, 10))
	}))
	defer srv.Close()

	def := domain.ProviderDefinition{ID: "openai", Kind: domain.ProviderKindOpenAI, Endpoint: srv.URL + "/v1", RequestsPerMinute: 1}
	p := newGenerativeProvider(def, stubCredentials{secret: "sk"}, srv.Client())

	first := p.Call(context.Background(), priceRequest())
	require.True(t, first.OK())
	second := p.Call(context.Background(), priceRequest())
	assert.Equal(t, domain.StatusRetryableFailure, second.Status)
	assert.Equal(t, domain.ErrorKindRateLimit, second.ErrorKind)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerative_Probe(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, errorResponse("invalid_api_key", "invalid_request_error"))
			return
		}
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`)
	}, "unused")

	assert.NoError(t, p.Probe(context.Background(), "good"))
	err := p.Probe(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindAuth, domain.KindOf(err))
}

func TestGenerative_ProbeNetworkError(t *testing.T) {
	p, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {}, "sk")
	srv.Close()
	err := p.Probe(context.Background(), "sk")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindNetwork, domain.KindOf(err))
}
