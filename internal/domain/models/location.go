package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// LocationSample is an append-only driver position report for a ride.
type LocationSample struct {
	ID         int64
	RideID     uuid.UUID
	DriverID   uuid.UUID
	Coordinate Coordinate
	Heading    float64
	Speed      float64
	RecordedAt time.Time
}

// DriverLocation is the cached latest position of a ride's driver.
type DriverLocation struct {
	RideID     uuid.UUID  `json:"ride_id"`
	DriverID   uuid.UUID  `json:"driver_id"`
	Coordinate Coordinate `json:"coordinate"`
	Heading    float64    `json:"heading"`
	Speed      float64    `json:"speed"`
	RecordedAt time.Time  `json:"timestamp"`
}

func (s LocationSample) ToDriverLocation() DriverLocation {
	return DriverLocation{
		RideID:     s.RideID,
		DriverID:   s.DriverID,
		Coordinate: s.Coordinate,
		Heading:    s.Heading,
		Speed:      s.Speed,
		RecordedAt: s.RecordedAt,
	}
}
