// Package domain defines core business entities and value objects for ridepilot.
//
// The domain layer is independent of infrastructure concerns: it holds the
// vocabulary shared by the orchestrator, the provider adapters and the
// bookkeeping stores (cache, usage ledger, interaction memory, credentials).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Feature identifies one AI-assisted capability exposed to operators.
type Feature string

const (
	FeatureMatch          Feature = "match"
	FeaturePrice          Feature = "price"
	FeatureRoute          Feature = "route"
	FeatureDemandForecast Feature = "demand_forecast"
	FeatureAnalytics      Feature = "analytics"
	FeatureChat           Feature = "chat"
)

// Features lists every known feature in a stable order.
func Features() []Feature {
	return []Feature{
		FeatureMatch,
		FeaturePrice,
		FeatureRoute,
		FeatureDemandForecast,
		FeatureAnalytics,
		FeatureChat,
	}
}

// ParseFeature accepts canonical names plus a few common spellings ("demand-forecast", "pricing").
func ParseFeature(raw string) (Feature, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "match", "matching":
		return FeatureMatch, nil
	case "price", "pricing", "surge":
		return FeaturePrice, nil
	case "route", "routing":
		return FeatureRoute, nil
	case "demand_forecast", "demand", "forecast":
		return FeatureDemandForecast, nil
	case "analytics":
		return FeatureAnalytics, nil
	case "chat", "assistant":
		return FeatureChat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
}

// Valid reports whether f is one of the known features.
func (f Feature) Valid() bool {
	for _, known := range Features() {
		if f == known {
			return true
		}
	}
	return false
}

// FeatureRequest is a single invocation of a feature. It must not be mutated after construction.
type FeatureRequest struct {
	Feature     Feature
	Payload     map[string]any
	RequestedAt time.Time
}

// NewFeatureRequest copies payload so later edits by the caller cannot leak in.
func NewFeatureRequest(feature Feature, payload map[string]any, now time.Time) FeatureRequest {
	return FeatureRequest{
		Feature:     feature,
		Payload:     CloneMap(payload),
		RequestedAt: now,
	}
}

// SourceFallback tags results that were computed locally instead of by a provider.
const SourceFallback = "fallback"

// OrchestrationResult is the only value handed back to callers of the orchestrator.
type OrchestrationResult struct {
	Feature    Feature        `json:"feature"`
	Value      map[string]any `json:"value"`
	Source     string         `json:"source"`
	TokensUsed int            `json:"tokens_used"`
	Cost       Cost           `json:"cost"`
	ComputedAt time.Time      `json:"computed_at"`
}

// IsFallback reports whether the result was produced without any provider.
func (r OrchestrationResult) IsFallback() bool {
	return r.Source == SourceFallback
}

// CloneMap performs a deep copy of JSON-like maps (nested maps and slices).
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = CloneMap(item)
		}
		return out
	default:
		return v
	}
}
