package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
)

// TestConfig_ChainProviders tests resolving the ordered provider chain
func TestConfig_ChainProviders(t *testing.T) {
	providers := []domain.ProviderDefinition{
		{ID: "openai", Kind: domain.ProviderKindOpenAI},
		{ID: "heuristic", Kind: domain.ProviderKindHeuristic},
	}

	tests := []struct {
		name      string
		config    domain.Config
		wantIDs   []string
		wantError bool
	}{
		{
			name:    "uses declaration order without explicit chain",
			config:  domain.Config{Providers: providers},
			wantIDs: []string{"openai", "heuristic"},
		},
		{
			name:    "honors explicit chain order",
			config:  domain.Config{Providers: providers, Chain: []string{"heuristic", "openai"}},
			wantIDs: []string{"heuristic", "openai"},
		},
		{
			name:      "returns error for unknown chain member",
			config:    domain.Config{Providers: providers, Chain: []string{"openai", "missing"}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := tt.config.ChainProviders()
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, domain.ErrUnknownProvider) {
					t.Fatalf("error = %v, want ErrUnknownProvider", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ChainProviders() error = %v", err)
			}
			if len(chain) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(chain), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if chain[i].ID != id {
					t.Errorf("chain[%d] = %s, want %s", i, chain[i].ID, id)
				}
			}
		})
	}
}

// TestConfig_TTLFor tests per-feature cache lifetimes
func TestConfig_TTLFor(t *testing.T) {
	cfg := domain.Config{
		Cache: domain.CacheSettings{
			TTLs: map[domain.Feature]time.Duration{domain.FeaturePrice: time.Minute},
		},
	}

	if got := cfg.TTLFor(domain.FeaturePrice); got != time.Minute {
		t.Errorf("price TTL = %v, want override 1m", got)
	}
	if got := cfg.TTLFor(domain.FeatureAnalytics); got != domain.DefaultAnalyticsTTL {
		t.Errorf("analytics TTL = %v, want %v", got, domain.DefaultAnalyticsTTL)
	}
	if got := cfg.TTLFor(domain.FeatureChat); got != 0 {
		t.Errorf("chat TTL = %v, want 0", got)
	}
	if cfg.TTLFor(domain.FeatureAnalytics) <= cfg.TTLFor(domain.FeatureDemandForecast) {
		t.Error("analytics should outlive demand data")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg domain.Config
	if got := cfg.GetRetentionDays(); got != 30 {
		t.Errorf("GetRetentionDays() = %d, want 30", got)
	}
	if got := cfg.GetFallbackTTL(); got != domain.DefaultFallbackTTL {
		t.Errorf("GetFallbackTTL() = %v", got)
	}
	if got := cfg.GetCredentialBackend(); got != domain.BackendMemory {
		t.Errorf("GetCredentialBackend() = %s", got)
	}
	cfg.Retry.MaxRetries = -3
	if got := cfg.GetMaxRetries(); got != 0 {
		t.Errorf("GetMaxRetries() = %d, want 0", got)
	}
}

func TestParseFeature(t *testing.T) {
	tests := map[string]domain.Feature{
		"price":           domain.FeaturePrice,
		"Pricing":         domain.FeaturePrice,
		"demand-forecast": domain.FeatureDemandForecast,
		" match ":         domain.FeatureMatch,
		"chat":            domain.FeatureChat,
	}
	for raw, want := range tests {
		got, err := domain.ParseFeature(raw)
		if err != nil {
			t.Fatalf("ParseFeature(%q) error = %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseFeature(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := domain.ParseFeature("teleport"); !errors.Is(err, domain.ErrUnknownFeature) {
		t.Errorf("expected ErrUnknownFeature, got %v", err)
	}
}

func TestCost(t *testing.T) {
	c := domain.CostForTokens(1500, 0.002)
	if c != 3000 {
		t.Fatalf("CostForTokens = %d micros, want 3000", c)
	}
	if c.String() != "$0.003000" {
		t.Errorf("String() = %s", c.String())
	}
	var sum domain.Cost
	for i := 0; i < 10; i++ {
		sum += domain.CostFromDollars(0.1)
	}
	if sum != domain.CostFromDollars(1) {
		t.Errorf("sum of ten 0.1 = %v, want exactly $1", sum)
	}
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := domain.CacheEntry{ExpiresAt: now.Add(time.Minute)}
	if entry.Expired(now.Add(59 * time.Second)) {
		t.Error("entry expired early")
	}
	if !entry.Expired(now.Add(time.Minute)) {
		t.Error("entry must be expired exactly at ExpiresAt")
	}
}

func TestFailed_StatusFromKind(t *testing.T) {
	if r := domain.Failed("p", domain.ErrorKindRateLimit, nil); !r.Retryable() {
		t.Error("rate limit should be retryable")
	}
	if r := domain.Failed("p", domain.ErrorKindAuth, nil); r.Status != domain.StatusFatalFailure {
		t.Error("auth should be fatal")
	}
	if r := domain.Failed("p", domain.ErrorKindNone, nil); r.OK() {
		t.Error("a failure must never be reported as success")
	}
}
