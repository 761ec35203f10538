package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
)

func TestCheckInput(t *testing.T) {
	driver := map[string]any{"id": "d1", "lat": 52.5, "lng": 13.4}
	tests := []struct {
		name    string
		feature domain.Feature
		payload map[string]any
		wantErr bool
		empty   bool
	}{
		{"match ok", domain.FeatureMatch, map[string]any{"rider": map[string]any{"lat": 52.5, "lng": 13.4}, "drivers": []any{driver}}, false, false},
		{"match no drivers", domain.FeatureMatch, map[string]any{"rider": map[string]any{"lat": 52.5, "lng": 13.4}, "drivers": []any{}}, true, true},
		{"match driver without id", domain.FeatureMatch, map[string]any{"drivers": []any{map[string]any{"lat": 1.0}}}, true, false},
		{"price ok", domain.FeaturePrice, map[string]any{"distance": 8.5, "time": 25}, false, false},
		{"price zero distance", domain.FeaturePrice, map[string]any{"distance": 0, "time": 25}, true, false},
		{"price bad weather", domain.FeaturePrice, map[string]any{"distance": 1, "time": 2, "weather": "hail"}, true, false},
		{"price wrong type", domain.FeaturePrice, map[string]any{"distance": "far", "time": 2}, true, false},
		{"route same point", domain.FeatureRoute, map[string]any{"origin": map[string]any{"lat": 1, "lng": 1}, "destination": map[string]any{"lat": 1, "lng": 1}}, true, false},
		{"route bad lat", domain.FeatureRoute, map[string]any{"origin": map[string]any{"lat": 91, "lng": 1}, "destination": map[string]any{"lat": 1, "lng": 1}}, true, false},
		{"demand ok", domain.FeatureDemandForecast, map[string]any{"zone": "downtown", "hour": 8}, false, false},
		{"demand hour out of range", domain.FeatureDemandForecast, map[string]any{"zone": "downtown", "hour": 24}, true, false},
		{"analytics empty", domain.FeatureAnalytics, map[string]any{"metrics": map[string]any{}}, true, false},
		{"chat blank", domain.FeatureChat, map[string]any{"message": "   "}, true, false},
		{"chat ok", domain.FeatureChat, map[string]any{"message": "hi"}, false, false},
		{"unknown feature", domain.Feature("teleport"), map[string]any{}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkInput(tt.feature, tt.payload)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			var inputErr *domain.InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.empty, inputErr.Empty)
			assert.NotEmpty(t, inputErr.Reason)
		})
	}
}

func TestCheckInput_ReasonUsesJSONNames(t *testing.T) {
	err := checkInput(domain.FeaturePrice, map[string]any{"distance": -1, "time": 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distance failed gt")
}
