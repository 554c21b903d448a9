package handler

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*==========================Rides=================================*/

type RideService interface {
	Create(ctx context.Context, req models.RideRequest) (*models.Ride, error)
	Get(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.Ride, error)
	Advance(ctx context.Context, rideID, driverID uuid.UUID, target types.RideStatus, otp string) (*models.Ride, error)
	Cancel(ctx context.Context, rideID uuid.UUID, actor models.Caller, reason string) (*models.Ride, error)
}

/*==========================Pricing===============================*/

type FareService interface {
	FareEstimate(pickup, destination models.Coordinate, vt types.VehicleType, flags models.SurgeFlags) (models.FareEstimate, error)
	AllVehicleEstimates(pickup, destination models.Coordinate, flags models.SurgeFlags) ([]models.FareEstimate, error)
}

/*=========================Dispatch===============================*/

type DispatchService interface {
	FindAvailable(ctx context.Context, driverLocation models.Coordinate, vt types.VehicleType, radiusKm float64) ([]models.AvailableRide, error)
	Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
}

/*=========================Tracking===============================*/

type TrackingService interface {
	Record(ctx context.Context, sample models.LocationSample) (*models.LocationSample, error)
	Latest(ctx context.Context, rideID uuid.UUID, caller models.Caller) (*models.DriverLocation, error)
	History(ctx context.Context, rideID uuid.UUID, caller models.Caller, limit int) ([]models.LocationSample, error)
}

/*=========================Payments===============================*/

type PaymentService interface {
	UpdatePaymentStatus(ctx context.Context, rideID, customerID uuid.UUID, change models.PaymentChange) (*models.PaymentUpdate, error)
}
