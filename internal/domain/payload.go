package domain

import (
	"encoding/json"
	"fmt"
)

// Typed views of feature payloads. Payloads travel as opaque maps; adapters and
// validation decode them into these shapes when they need structure.

// MatchInput asks for the best drivers for a rider.
type MatchInput struct {
	Rider   LatLng        `json:"rider"`
	Drivers []DriverInput `json:"drivers" validate:"dive"`
	Limit   int           `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// DriverInput is one candidate driver.
type DriverInput struct {
	ID             string  `json:"id" validate:"required"`
	Lat            float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng            float64 `json:"lng" validate:"gte=-180,lte=180"`
	Rating         float64 `json:"rating,omitempty" validate:"gte=0,lte=5"`
	AcceptanceRate float64 `json:"acceptance_rate,omitempty" validate:"gte=0,lte=1"`
}

// PriceInput describes a trip to be priced. Distance is in km, time in minutes.
type PriceInput struct {
	Distance float64 `json:"distance" validate:"gt=0"`
	Time     float64 `json:"time" validate:"gt=0"`
	Demand   float64 `json:"demand,omitempty" validate:"gte=0"`
	Supply   float64 `json:"supply,omitempty" validate:"gte=0"`
	Hour     *int    `json:"hour,omitempty" validate:"omitempty,gte=0,lte=23"`
	Weather  string  `json:"weather,omitempty" validate:"omitempty,oneof=clear rain snow storm"`
}

// RouteInput asks for a ranking of routes between two points.
// Routes is filled in from the directions provider before any AI provider sees it.
type RouteInput struct {
	Origin      LatLng  `json:"origin"`
	Destination LatLng  `json:"destination"`
	Preference  string  `json:"preference,omitempty" validate:"omitempty,oneof=fastest shortest balanced"`
	Routes      []Route `json:"routes,omitempty"`
}

// DemandInput asks for a ride demand forecast in a zone.
type DemandInput struct {
	Zone    string    `json:"zone" validate:"required"`
	Hour    int       `json:"hour" validate:"gte=0,lte=23"`
	History []float64 `json:"history,omitempty" validate:"dive,gte=0"`
}

// AnalyticsInput carries business metrics to summarize.
type AnalyticsInput struct {
	Metrics map[string]float64 `json:"metrics" validate:"required,min=1"`
	Period  string             `json:"period,omitempty"`
}

// ChatInput is a free-form operator question.
type ChatInput struct {
	Message string `json:"message" validate:"required,notblank,max=4000"`
}

// DecodePayload converts an opaque payload into a typed view.
func DecodePayload(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// ResultKey is the field every successful result for the feature must carry.
func (f Feature) ResultKey() string {
	switch f {
	case FeatureMatch:
		return "matches"
	case FeaturePrice:
		return "price"
	case FeatureRoute:
		return "ranked_routes"
	case FeatureDemandForecast:
		return "predicted_demand"
	case FeatureAnalytics:
		return "insights"
	case FeatureChat:
		return "reply"
	}
	return ""
}
