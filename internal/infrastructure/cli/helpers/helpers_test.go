package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
)

func TestReadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"zone":"downtown"}`), 0o600))

	got, err := ReadPayload(`{"distance": 3}`, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got["distance"])

	got, err = ReadPayload("", path, nil)
	require.NoError(t, err)
	assert.Equal(t, "downtown", got["zone"])

	got, err = ReadPayload("", "-", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", got["message"])

	got, err = ReadPayload("", "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadPayload(`{}`, path, nil)
	assert.Error(t, err)

	_, err = ReadPayload(`[1]`, "", nil)
	assert.Error(t, err)
}

func TestRenderUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderUsage(&buf, nil, domain.UsageRecord{}))
	assert.Contains(t, buf.String(), "No usage")

	buf.Reset()
	rows := []domain.UsageRecord{{ProviderID: "openai", Feature: domain.FeatureChat, RequestCount: 2, TotalTokens: 300, TotalCost: 600}}
	require.NoError(t, RenderUsage(&buf, rows, rows[0]))
	out := buf.String()
	assert.Contains(t, out, "PROVIDER")
	assert.Contains(t, out, "openai")
	assert.Contains(t, out, "$0.000600")
	assert.Contains(t, out, "TOTAL")
}

func TestRenderResult_FallbackNote(t *testing.T) {
	var buf bytes.Buffer
	res := domain.OrchestrationResult{
		Feature: domain.FeaturePrice,
		Source:  domain.SourceFallback,
		Value:   map[string]any{"price": 9.5, "degraded": true},
	}
	require.NoError(t, RenderResult(&buf, res))
	assert.Contains(t, buf.String(), "locally computed")
	assert.Contains(t, buf.String(), `"price": 9.5`)
}

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["secret"]})
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"unknown provider"}`))
		}
	}))
	defer srv.Close()

	client := NewAPIClient(strings.TrimPrefix(srv.URL, "http://"))
	var out map[string]string
	require.NoError(t, client.Do(context.Background(), http.MethodPut, "/ok", map[string]string{"secret": "s"}, &out))
	assert.Equal(t, "s", out["echo"])

	require.NoError(t, client.Do(context.Background(), http.MethodPut, "/empty", nil, &out))

	err := client.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
