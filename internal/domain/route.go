package domain

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Route is one candidate path returned by the directions provider.
type Route struct {
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
	Geometry        string  `json:"geometry"`
	Summary         string  `json:"summary,omitempty"`
}

// AsMap converts a route into the payload form handed to AI providers.
func (r Route) AsMap() map[string]any {
	m := map[string]any{
		"distance": r.DistanceMeters,
		"duration": r.DurationSeconds,
		"geometry": r.Geometry,
	}
	if r.Summary != "" {
		m["summary"] = r.Summary
	}
	return m
}
