package models

import "github.com/Temutjin2k/ride-dispatch/internal/domain/types"

// SurgeFlags are caller-supplied market conditions.
type SurgeFlags struct {
	BadWeather bool `json:"bad_weather"`
	HighDemand bool `json:"high_demand"`
}

// FareEstimate is the priced quote for one vehicle type.
type FareEstimate struct {
	VehicleType          types.VehicleType `json:"vehicle_type"`
	DistanceKm           float64           `json:"distance_km"`
	EstimatedDurationMin int               `json:"estimated_duration_minutes"`
	Fare                 Fare              `json:"fare"`
	SurgeActive          bool              `json:"surge_active"`
}
