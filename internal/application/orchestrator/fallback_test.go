package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
)

func TestFallbackValue_AlwaysCarriesResultKey(t *testing.T) {
	for _, feature := range domain.Features() {
		value := fallbackValue(feature, map[string]any{})
		assert.Contains(t, value, feature.ResultKey(), feature)
		assert.Equal(t, true, value["degraded"], feature)
	}
}

func TestFallbackValue_NearestDriversIsDeterministic(t *testing.T) {
	payload := map[string]any{
		"rider": map[string]any{"lat": 0.0, "lng": 0.0},
		"drivers": []any{
			map[string]any{"id": "far", "lat": 0.1, "lng": 0.0},
			map[string]any{"id": "b", "lat": 0.01, "lng": 0.0},
			map[string]any{"id": "a", "lat": 0.0, "lng": 0.01},
		},
		"limit": 2,
	}
	first := fallbackValue(domain.FeatureMatch, payload)
	second := fallbackValue(domain.FeatureMatch, payload)
	assert.Equal(t, first, second)

	matches := first["matches"].([]any)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].(map[string]any)["driver_id"], "equal distance ties break by id")
	assert.Equal(t, "b", matches[1].(map[string]any)["driver_id"])
}

func TestFallbackValue_FlatPrice(t *testing.T) {
	value := fallbackValue(domain.FeaturePrice, map[string]any{"distance": 8.5, "time": 25, "demand": 100, "supply": 1})
	assert.Equal(t, 20.2, value["price"])
	assert.Equal(t, 1.0, value["surge_multiplier"], "fallback never surges")

	short := fallbackValue(domain.FeaturePrice, map[string]any{"distance": 0.5, "time": 1})
	assert.Equal(t, domain.MinimumFare, short["price"])
}

func TestFallbackValue_Route(t *testing.T) {
	withRoutes := fallbackValue(domain.FeatureRoute, map[string]any{
		"routes": []any{
			map[string]any{"distance": 1000.0, "duration": 120.0},
			map[string]any{"distance": 900.0, "duration": 150.0},
		},
	})
	assert.Len(t, withRoutes["ranked_routes"], 2)
	assert.Nil(t, withRoutes["estimated"])

	estimated := fallbackValue(domain.FeatureRoute, map[string]any{
		"origin":      map[string]any{"lat": 0.0, "lng": 0.0},
		"destination": map[string]any{"lat": 0.0, "lng": 0.1},
	})
	assert.Equal(t, true, estimated["estimated"])
	route := estimated["ranked_routes"].([]any)[0].(map[string]any)
	assert.InDelta(t, 14455, route["distance"], 50)
}

func TestFallbackValue_DemandUsesHistoryAverage(t *testing.T) {
	value := fallbackValue(domain.FeatureDemandForecast, map[string]any{"zone": "z", "history": []any{10, 20, 30}})
	assert.Equal(t, 20.0, value["predicted_demand"])
	assert.Equal(t, "z", value["zone"])
}

func TestEmptyValue(t *testing.T) {
	assert.Equal(t, map[string]any{"no_drivers": true, "matches": []any{}}, emptyValue(domain.FeatureMatch))
	assert.Equal(t, true, emptyValue(domain.FeatureRoute)["no_routes"])
	for _, feature := range domain.Features() {
		assert.Contains(t, emptyValue(feature), feature.ResultKey())
	}
}
