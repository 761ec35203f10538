package ai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/pkg/geo"
	"github.com/doeshing/ridepilot/internal/ports"
)

// heuristicProvider answers every feature locally. It needs no credential and
// only fails when a payload lacks the fields it scores on.
type heuristicProvider struct {
	id string
}

func newHeuristicProvider(def domain.ProviderDefinition) *heuristicProvider {
	return &heuristicProvider{id: defaultString(def.ID, domain.ProviderKindHeuristic)}
}

func (p *heuristicProvider) ID() string {
	return p.id
}

func (p *heuristicProvider) Call(_ context.Context, req ports.ProviderRequest) domain.ProviderResult {
	var (
		value map[string]any
		err   error
	)
	switch req.Feature {
	case domain.FeatureMatch:
		value, err = scoreMatch(req.Payload)
	case domain.FeaturePrice:
		value, err = scorePrice(req.Payload)
	case domain.FeatureRoute:
		value, err = scoreRoutes(req.Payload)
	case domain.FeatureDemandForecast:
		value, err = scoreDemand(req.Payload)
	case domain.FeatureAnalytics:
		value, err = summarizeMetrics(req.Payload)
	case domain.FeatureChat:
		value, err = cannedReply(req.Payload)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnsupportedFeature, req.Feature)
	}
	if err != nil {
		return domain.Failed(p.id, domain.ErrorKindMalformedRequest, err)
	}
	value["model"] = "heuristic"
	return domain.Succeeded(p.id, value, 0, 0)
}

func scoreMatch(payload map[string]any) (map[string]any, error) {
	var in domain.MatchInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	if len(in.Drivers) == 0 {
		return nil, fmt.Errorf("no drivers to score")
	}

	type scored struct {
		id    string
		score float64
		km    float64
	}
	ranked := make([]scored, 0, len(in.Drivers))
	for _, d := range in.Drivers {
		km := geo.HaversineKm(in.Rider.Lat, in.Rider.Lng, d.Lat, d.Lng)
		rating := d.Rating
		if rating == 0 {
			rating = 4.0
		}
		acceptance := d.AcceptanceRate
		if acceptance == 0 {
			acceptance = 0.8
		}
		score := 0.5/(1+km) + 0.3*(rating/5) + 0.2*acceptance
		ranked = append(ranked, scored{id: d.ID, score: score, km: km})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	limit := in.Limit
	if limit <= 0 {
		limit = domain.DefaultMatchLimit
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	matches := make([]any, 0, limit)
	for _, r := range ranked[:limit] {
		matches = append(matches, map[string]any{
			"driver_id":   r.id,
			"score":       geo.Round(r.score, 3),
			"distance_km": geo.Round(r.km, 2),
			"eta_minutes": geo.Round(geo.ETAMinutes(r.km), 1),
		})
	}
	return map[string]any{"matches": matches}, nil
}

func scorePrice(payload map[string]any) (map[string]any, error) {
	var in domain.PriceInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	if in.Distance <= 0 || in.Time <= 0 {
		return nil, fmt.Errorf("distance and time must be positive")
	}

	surge := 1.0
	switch {
	case in.Supply > 0:
		surge = 1 + (in.Demand/in.Supply-1)*0.5
	case in.Demand > 0:
		surge = 1.5
	}
	if in.Hour != nil && isPeakHour(*in.Hour) {
		surge += 0.2
	}
	switch in.Weather {
	case "rain":
		surge += 0.1
	case "snow":
		surge += 0.25
	case "storm":
		surge += 0.4
	}
	surge = geo.Round(geo.Clamp(surge, 1, domain.MaxSurge), 2)

	base := domain.TripFare(in.Distance, in.Time)
	price := domain.SurgedFare(base, surge)
	return map[string]any{
		"price":            geo.Round(price, 2),
		"base_fare":        geo.Round(base, 2),
		"surge_multiplier": surge,
		"currency":         "USD",
	}, nil
}

func isPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
}

func scoreRoutes(payload map[string]any) (map[string]any, error) {
	var in domain.RouteInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	if len(in.Routes) == 0 {
		return nil, fmt.Errorf("no routes to rank")
	}

	minDur, minDist := math.Inf(1), math.Inf(1)
	for _, r := range in.Routes {
		minDur = math.Min(minDur, r.DurationSeconds)
		minDist = math.Min(minDist, r.DistanceMeters)
	}
	wDur, wDist := 0.6, 0.4
	switch in.Preference {
	case "fastest":
		wDur, wDist = 1, 0
	case "shortest":
		wDur, wDist = 0, 1
	}

	type scored struct {
		index int
		score float64
		route domain.Route
	}
	ranked := make([]scored, 0, len(in.Routes))
	for i, r := range in.Routes {
		score := wDur*ratio(minDur, r.DurationSeconds) + wDist*ratio(minDist, r.DistanceMeters)
		ranked = append(ranked, scored{index: i, score: score, route: r})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]any, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, map[string]any{
			"index":    r.index,
			"score":    geo.Round(r.score, 3),
			"distance": r.route.DistanceMeters,
			"duration": r.route.DurationSeconds,
		})
	}
	return map[string]any{
		"ranked_routes": out,
		"recommended":   ranked[0].index,
	}, nil
}

func ratio(best, v float64) float64 {
	if v <= 0 {
		return 1
	}
	return best / v
}

func scoreDemand(payload map[string]any) (map[string]any, error) {
	var in domain.DemandInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	if in.Zone == "" {
		return nil, fmt.Errorf("zone is required")
	}

	baseline := 10.0
	if len(in.History) > 0 {
		var sum float64
		for _, h := range in.History {
			sum += h
		}
		baseline = sum / float64(len(in.History))
	}
	predicted := geo.Round(baseline*hourFactor(in.Hour), 1)
	return map[string]any{
		"zone":             in.Zone,
		"predicted_demand": predicted,
		"confidence":       geo.Round(math.Min(0.9, 0.3+0.05*float64(len(in.History))), 2),
		"drivers_needed":   int(math.Ceil(predicted / 2.5)),
	}, nil
}

func hourFactor(hour int) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 1.4
	case hour >= 17 && hour <= 19:
		return 1.5
	case hour >= 22 || hour <= 4:
		return 0.6
	default:
		return 1.0
	}
}

func summarizeMetrics(payload map[string]any) (map[string]any, error) {
	var in domain.AnalyticsInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	if len(in.Metrics) == 0 {
		return nil, fmt.Errorf("no metrics to summarize")
	}

	keys := make([]string, 0, len(in.Metrics))
	for k := range in.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hi, lo := keys[0], keys[0]
	for _, k := range keys[1:] {
		if in.Metrics[k] > in.Metrics[hi] {
			hi = k
		}
		if in.Metrics[k] < in.Metrics[lo] {
			lo = k
		}
	}

	insights := []any{
		fmt.Sprintf("%s is the highest metric at %g", hi, in.Metrics[hi]),
	}
	if lo != hi {
		insights = append(insights, fmt.Sprintf("%s is the lowest metric at %g", lo, in.Metrics[lo]))
	}
	if rate, ok := in.Metrics["completion_rate"]; ok && rate < 0.8 {
		insights = append(insights, "completion rate is below 80%; review cancellations")
	}
	if rate, ok := in.Metrics["utilization"]; ok && rate < 0.5 {
		insights = append(insights, "driver utilization is under half; consider fewer active shifts")
	}

	period := in.Period
	if period == "" {
		period = "the selected period"
	}
	return map[string]any{
		"insights": insights,
		"summary":  fmt.Sprintf("%d metrics analysed for %s", len(keys), period),
	}, nil
}

func cannedReply(payload map[string]any) (map[string]any, error) {
	var in domain.ChatInput
	if err := domain.DecodePayload(payload, &in); err != nil {
		return nil, err
	}
	msg := strings.ToLower(strings.TrimSpace(in.Message))
	if msg == "" {
		return nil, fmt.Errorf("empty message")
	}

	var reply string
	switch {
	case strings.Contains(msg, "price"), strings.Contains(msg, "surge"), strings.Contains(msg, "fare"):
		reply = "Fares combine a base fare, distance and time; surge rises with the demand to supply ratio and peaks at 3x."
	case strings.Contains(msg, "driver"), strings.Contains(msg, "match"):
		reply = "Drivers are ranked by proximity first, then rating and acceptance rate."
	case strings.Contains(msg, "demand"), strings.Contains(msg, "forecast"):
		reply = "Demand peaks during commute hours (7-9 and 17-19); plan driver supply accordingly."
	case strings.Contains(msg, "route"):
		reply = "Routes are ranked by a blend of travel time and distance."
	default:
		reply = "The assistant is running on the local model; detailed answers resume once an AI provider is reachable."
	}
	return map[string]any{"reply": reply}, nil
}

var _ ports.Provider = (*heuristicProvider)(nil)
