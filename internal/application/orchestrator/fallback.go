package orchestrator

import (
	"cmp"
	"slices"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/pkg/geo"
)

const (
	// straight-line distance understates road distance
	detourFactor    = 1.3
	chatUnavailable = "The assistant is unavailable right now. Please try again in a few minutes."
)

// fallbackValue computes a conservative local answer once every provider has
// failed. It depends only on the payload, so equal requests get equal answers.
func fallbackValue(feature domain.Feature, payload map[string]any) map[string]any {
	var value map[string]any
	switch feature {
	case domain.FeatureMatch:
		value = nearestDrivers(payload)
	case domain.FeaturePrice:
		value = flatPrice(payload)
	case domain.FeatureRoute:
		value = firstRoute(payload)
	case domain.FeatureDemandForecast:
		value = historicalDemand(payload)
	case domain.FeatureAnalytics:
		value = rawMetrics(payload)
	case domain.FeatureChat:
		value = map[string]any{"reply": chatUnavailable}
	default:
		value = map[string]any{}
	}
	value["degraded"] = true
	return value
}

// emptyValue is the typed empty answer for a short-circuited request.
func emptyValue(feature domain.Feature) map[string]any {
	switch feature {
	case domain.FeatureMatch:
		return map[string]any{"no_drivers": true, "matches": []any{}}
	case domain.FeatureRoute:
		return map[string]any{"no_routes": true, "ranked_routes": []any{}}
	case domain.FeaturePrice, domain.FeatureDemandForecast:
		return map[string]any{feature.ResultKey(): 0.0}
	case domain.FeatureAnalytics:
		return map[string]any{"insights": []any{}}
	case domain.FeatureChat:
		return map[string]any{"reply": ""}
	}
	return map[string]any{}
}

func nearestDrivers(payload map[string]any) map[string]any {
	var in domain.MatchInput
	if err := domain.DecodePayload(payload, &in); err != nil || len(in.Drivers) == 0 {
		return emptyValue(domain.FeatureMatch)
	}

	type candidate struct {
		id string
		km float64
	}
	candidates := make([]candidate, 0, len(in.Drivers))
	for _, d := range in.Drivers {
		candidates = append(candidates, candidate{id: d.ID, km: geo.HaversineKm(in.Rider.Lat, in.Rider.Lng, d.Lat, d.Lng)})
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.km, b.km); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	limit := in.Limit
	if limit <= 0 {
		limit = domain.DefaultMatchLimit
	}
	limit = min(limit, len(candidates))
	matches := make([]any, 0, limit)
	for _, c := range candidates[:limit] {
		matches = append(matches, map[string]any{
			"driver_id":   c.id,
			"distance_km": geo.Round(c.km, 2),
			"eta_minutes": geo.Round(geo.ETAMinutes(c.km), 1),
		})
	}
	return map[string]any{"matches": matches, "strategy": "nearest"}
}

func flatPrice(payload map[string]any) map[string]any {
	var in domain.PriceInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return emptyValue(domain.FeaturePrice)
	}
	base := domain.TripFare(in.Distance, in.Time)
	return map[string]any{
		"price":            geo.Round(domain.SurgedFare(base, 1), 2),
		"base_fare":        geo.Round(base, 2),
		"surge_multiplier": 1.0,
		"currency":         "USD",
	}
}

func firstRoute(payload map[string]any) map[string]any {
	var in domain.RouteInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return emptyValue(domain.FeatureRoute)
	}
	if len(in.Routes) > 0 {
		ranked := make([]any, 0, len(in.Routes))
		for i, r := range in.Routes {
			ranked = append(ranked, map[string]any{
				"index":    i,
				"distance": r.DistanceMeters,
				"duration": r.DurationSeconds,
			})
		}
		return map[string]any{"ranked_routes": ranked, "recommended": 0}
	}

	km := geo.HaversineKm(in.Origin.Lat, in.Origin.Lng, in.Destination.Lat, in.Destination.Lng) * detourFactor
	return map[string]any{
		"ranked_routes": []any{map[string]any{
			"index":    0,
			"distance": geo.Round(km*1000, 0),
			"duration": geo.Round(geo.ETAMinutes(km)*60, 0),
		}},
		"recommended": 0,
		"estimated":   true,
	}
}

func historicalDemand(payload map[string]any) map[string]any {
	var in domain.DemandInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return emptyValue(domain.FeatureDemandForecast)
	}
	var avg float64
	if len(in.History) > 0 {
		for _, h := range in.History {
			avg += h
		}
		avg /= float64(len(in.History))
	}
	return map[string]any{
		"zone":             in.Zone,
		"predicted_demand": geo.Round(avg, 1),
		"confidence":       0.0,
	}
}

func rawMetrics(payload map[string]any) map[string]any {
	var in domain.AnalyticsInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return emptyValue(domain.FeatureAnalytics)
	}
	metrics := make(map[string]any, len(in.Metrics))
	for k, v := range in.Metrics {
		metrics[k] = v
	}
	return map[string]any{
		"insights": []any{"Insights are unavailable; raw metrics are shown unchanged."},
		"metrics":  metrics,
	}
}
