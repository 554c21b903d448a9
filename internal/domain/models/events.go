package models

import (
	"encoding/json"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// RealtimeEvent is published on the channel of one ride.
type RealtimeEvent struct {
	RideID    uuid.UUID           `json:"ride_id"`
	Type      types.RealtimeEvent `json:"type"`
	Payload   json.RawMessage     `json:"payload"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewRealtimeEvent marshals payload into an event for rideID.
func NewRealtimeEvent(rideID uuid.UUID, typ types.RealtimeEvent, payload any, at time.Time) (RealtimeEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return RealtimeEvent{}, err
	}
	return RealtimeEvent{
		RideID:    rideID,
		Type:      typ,
		Payload:   body,
		Timestamp: at,
	}, nil
}

type DriverLocationPayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

type RideStatusChangedPayload struct {
	Status  types.RideStatus `json:"status"`
	Message string           `json:"message"`
}

type DriverAssignedPayload struct {
	DriverID   uuid.UUID `json:"driver_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type RideCompletedPayload struct {
	Fare                  Fare `json:"fare"`
	ActualDurationMinutes int  `json:"actual_duration_minutes"`
}

type RideCancelledPayload struct {
	Reason      string            `json:"reason"`
	CancelledBy types.CancelledBy `json:"cancelled_by"`
}
