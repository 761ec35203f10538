package domain

import "math"

// Fare parameters shared by the heuristic model and the local fallback. Amounts are USD.
const (
	BaseFare    = 2.50
	PerKm       = 1.20
	PerMinute   = 0.30
	MinimumFare = 5.00
	MaxSurge    = 3.0

	DefaultMatchLimit = 5
)

// TripFare is the unsurged fare for a trip of distanceKm taking minutes.
func TripFare(distanceKm, minutes float64) float64 {
	return BaseFare + PerKm*distanceKm + PerMinute*minutes
}

// SurgedFare applies surge to a base fare, never dropping below MinimumFare.
func SurgedFare(base, surge float64) float64 {
	return math.Max(MinimumFare, base*surge)
}
