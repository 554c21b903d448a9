package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// EarningsRecord is the driver's share of one paid ride. At most one per ride.
type EarningsRecord struct {
	ID                 uuid.UUID
	DriverID           uuid.UUID
	RideID             uuid.UUID
	Date               time.Time
	TotalFare          float64
	PlatformCommission float64
	DriverEarnings     float64
	VehicleType        types.VehicleType
	PaymentMethod      types.PaymentMethod
}

// TripHistoryRecord is a denormalized snapshot of a completed and paid ride.
type TripHistoryRecord struct {
	ID            uuid.UUID
	RideID        uuid.UUID
	CustomerID    uuid.UUID
	DriverID      uuid.UUID
	Pickup        Place
	Destination   Place
	VehicleType   types.VehicleType
	Fare          Fare
	DistanceKm    float64
	DurationMin   int
	PaymentMethod types.PaymentMethod
	TripDate      time.Time
}

type SettlementStatus string

const (
	SettlementSettled        SettlementStatus = "settled"
	SettlementAlreadySettled SettlementStatus = "already_settled"
	SettlementPendingRetry   SettlementStatus = "pending_retry"
	SettlementNotApplicable  SettlementStatus = "not_applicable"
)

// SettlementResult tells the caller whether earnings were written.
type SettlementResult struct {
	Status   SettlementStatus `json:"status"`
	Earnings *EarningsRecord  `json:"-"`
}

// PaymentUpdate is the outcome of a payment callback.
type PaymentUpdate struct {
	Ride       *Ride
	Settlement SettlementResult
}

// SettlementRetryMessage asks the settlement worker to settle a ride again.
type SettlementRetryMessage struct {
	RideID  uuid.UUID `json:"ride_id"`
	Attempt int       `json:"attempt"`
	Reason  string    `json:"reason"`
}

// PaymentChange is what the payment callback asks to record on a ride.
type PaymentChange struct {
	Method        types.PaymentMethod
	Status        types.PaymentStatus
	TransactionID *string
}
