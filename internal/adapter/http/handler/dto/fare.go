package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type FareEstimateRequest struct {
	PickupLatitude       *float64 `json:"pickup_latitude"`
	PickupLongitude      *float64 `json:"pickup_longitude"`
	DestinationLatitude  *float64 `json:"destination_latitude"`
	DestinationLongitude *float64 `json:"destination_longitude"`
	// Ignored by the all-types endpoint.
	VehicleType string `json:"vehicle_type,omitempty"`
	BadWeather  bool   `json:"bad_weather"`
	HighDemand  bool   `json:"high_demand"`
}

// Validate checks the request. vehicle_type is required only when requireType is set.
func (r *FareEstimateRequest) Validate(v *validator.Validator, requireType bool) {
	checkCoordinate(v, "pickup", r.PickupLatitude, r.PickupLongitude)
	checkCoordinate(v, "destination", r.DestinationLatitude, r.DestinationLongitude)
	if requireType {
		checkVehicleType(v, r.VehicleType)
	}
}

func (r *FareEstimateRequest) Pickup() models.Coordinate {
	return models.Coordinate{Latitude: *r.PickupLatitude, Longitude: *r.PickupLongitude}
}

func (r *FareEstimateRequest) Destination() models.Coordinate {
	return models.Coordinate{Latitude: *r.DestinationLatitude, Longitude: *r.DestinationLongitude}
}

func (r *FareEstimateRequest) Type() types.VehicleType {
	return types.VehicleType(r.VehicleType)
}

func (r *FareEstimateRequest) Flags() models.SurgeFlags {
	return models.SurgeFlags{BadWeather: r.BadWeather, HighDemand: r.HighDemand}
}
