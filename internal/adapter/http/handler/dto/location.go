package dto

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   float64  `json:"heading"`
	Speed     float64  `json:"speed"`
	// Defaults to the time the server received the sample.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (r *LocationRequest) Validate(v *validator.Validator) {
	checkCoordinate(v, "", r.Latitude, r.Longitude)
	v.Check(r.Heading >= 0 && r.Heading < 360, "heading", "must be in [0, 360)")
	v.Check(r.Speed >= 0, "speed", "must not be negative")
}

func (r *LocationRequest) ToModel(rideID, driverID uuid.UUID, now time.Time) models.LocationSample {
	at := now
	if r.Timestamp != nil {
		at = *r.Timestamp
	}
	return models.LocationSample{
		RideID:     rideID,
		DriverID:   driverID,
		Coordinate: models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude},
		Heading:    r.Heading,
		Speed:      r.Speed,
		RecordedAt: at.UTC(),
	}
}

type LocationResponse struct {
	RideID    uuid.UUID `json:"ride_id"`
	DriverID  uuid.UUID `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLocationResponse(loc models.DriverLocation) LocationResponse {
	return LocationResponse{
		RideID:    loc.RideID,
		DriverID:  loc.DriverID,
		Latitude:  loc.Coordinate.Latitude,
		Longitude: loc.Coordinate.Longitude,
		Heading:   loc.Heading,
		Speed:     loc.Speed,
		Timestamp: loc.RecordedAt,
	}
}
