package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is an address with its coordinate.
type Place struct {
	Address string `json:"address"`
	Coordinate
}

// Fare is the priced breakdown of a ride in whole currency units.
type Fare struct {
	BaseFare        float64 `json:"base_fare"`
	DistanceFare    float64 `json:"distance_fare"`
	TimeFare        float64 `json:"time_fare"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	TotalFare       float64 `json:"total_fare"`
}

// Ride is the central entity and the single source of truth for ride state.
type Ride struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	DriverID    *uuid.UUID
	Pickup      Place
	Destination Place
	VehicleType types.VehicleType
	Status      types.RideStatus

	Fare                 Fare
	DistanceKm           float64
	EstimatedDurationMin int
	ActualDurationMin    *int

	OTP string

	PaymentMethod types.PaymentMethod
	PaymentStatus types.PaymentStatus
	TransactionID *string

	CreatedAt       time.Time
	AcceptedAt      *time.Time
	RideStartedAt   *time.Time
	RideCompletedAt *time.Time
	CancelledAt     *time.Time

	// Only populated when Status is cancelled.
	CancelledBy        *types.CancelledBy
	CancellationReason *string

	LatestLocation *DriverLocation
}

// IsDriver reports whether id is the assigned driver.
func (r *Ride) IsDriver(id uuid.UUID) bool {
	return r.DriverID != nil && *r.DriverID == id
}

// IsCustomer reports whether id is the owning customer.
func (r *Ride) IsCustomer(id uuid.UUID) bool {
	return r.CustomerID == id
}

// IsParty reports whether c is the ride's customer or its assigned driver.
// Only parties see the pickup OTP.
func (r *Ride) IsParty(c Caller) bool {
	switch c.Role {
	case types.RolePassenger:
		return r.IsCustomer(c.ID)
	case types.RoleDriver:
		return r.IsDriver(c.ID)
	default:
		return false
	}
}

// CanView reports whether c may read the ride, its live location and its events.
func (r *Ride) CanView(c Caller) bool {
	if c.IsAnonymous() {
		return false
	}
	return c.Role == types.RoleAdmin || r.IsParty(c)
}

// Clone returns a deep copy so that services can stage changes before a conditional write.
func (r *Ride) Clone() *Ride {
	c := *r
	c.DriverID = clonePtr(r.DriverID)
	c.ActualDurationMin = clonePtr(r.ActualDurationMin)
	c.TransactionID = clonePtr(r.TransactionID)
	c.AcceptedAt = clonePtr(r.AcceptedAt)
	c.RideStartedAt = clonePtr(r.RideStartedAt)
	c.RideCompletedAt = clonePtr(r.RideCompletedAt)
	c.CancelledAt = clonePtr(r.CancelledAt)
	c.CancelledBy = clonePtr(r.CancelledBy)
	c.CancellationReason = clonePtr(r.CancellationReason)
	c.LatestLocation = clonePtr(r.LatestLocation)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AvailableRide is a requested ride as shown to a nearby driver.
type AvailableRide struct {
	Ride               *Ride
	DistanceToPickupKm float64
}

// RideRequest is a customer's request for a new ride.
type RideRequest struct {
	CustomerID    uuid.UUID
	Pickup        Place
	Destination   Place
	VehicleType   types.VehicleType
	PaymentMethod types.PaymentMethod
	Surge         SurgeFlags
}
