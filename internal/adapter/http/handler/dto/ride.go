package dto

import (
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type CreateRideRequest struct {
	PickupAddress        string   `json:"pickup_address"`
	PickupLatitude       *float64 `json:"pickup_latitude"`
	PickupLongitude      *float64 `json:"pickup_longitude"`
	DestinationAddress   string   `json:"destination_address"`
	DestinationLatitude  *float64 `json:"destination_latitude"`
	DestinationLongitude *float64 `json:"destination_longitude"`
	VehicleType          string   `json:"vehicle_type"`
	PaymentMethod        string   `json:"payment_method"`
	BadWeather           bool     `json:"bad_weather"`
	HighDemand           bool     `json:"high_demand"`
}

func (r *CreateRideRequest) Validate(v *validator.Validator) {
	checkAddress(v, "pickup_address", r.PickupAddress)
	checkCoordinate(v, "pickup", r.PickupLatitude, r.PickupLongitude)

	checkAddress(v, "destination_address", r.DestinationAddress)
	checkCoordinate(v, "destination", r.DestinationLatitude, r.DestinationLongitude)

	checkVehicleType(v, r.VehicleType)

	v.Check(r.PaymentMethod != "", "payment_method", "must be provided")
	if r.PaymentMethod != "" {
		v.Check(types.PaymentMethod(r.PaymentMethod).Valid(), "payment_method", "must be one of cash, card, mobile_banking")
	}
}

func (r *CreateRideRequest) ToModel(customerID uuid.UUID) models.RideRequest {
	return models.RideRequest{
		CustomerID: customerID,
		Pickup: models.Place{
			Address:    strings.TrimSpace(r.PickupAddress),
			Coordinate: models.Coordinate{Latitude: *r.PickupLatitude, Longitude: *r.PickupLongitude},
		},
		Destination: models.Place{
			Address:    strings.TrimSpace(r.DestinationAddress),
			Coordinate: models.Coordinate{Latitude: *r.DestinationLatitude, Longitude: *r.DestinationLongitude},
		},
		VehicleType:   types.VehicleType(r.VehicleType),
		PaymentMethod: types.PaymentMethod(r.PaymentMethod),
		Surge:         models.SurgeFlags{BadWeather: r.BadWeather, HighDemand: r.HighDemand},
	}
}

type AdvanceStatusRequest struct {
	Status string `json:"status"`
	OTP    string `json:"otp"`
}

func (r *AdvanceStatusRequest) Validate(v *validator.Validator) {
	v.Check(r.Status != "", "status", "must be provided")
	if r.Status != "" {
		v.Check(validator.PermittedValue(types.RideStatus(r.Status), types.StatusPickedUp, types.StatusInProgress, types.StatusCompleted),
			"status", "must be one of picked_up, in_progress, completed")
	}
	if r.OTP != "" {
		v.Check(len(r.OTP) == 4 && isDigits(r.OTP), "otp", "must be 4 digits")
	}
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelRideRequest) Validate(v *validator.Validator) {
	v.Check(strings.TrimSpace(r.Reason) != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= 500, "reason", "must not be more than 500 characters long")
}

type PlaceResponse struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewPlaceResponse(p models.Place) PlaceResponse {
	return PlaceResponse{Address: p.Address, Latitude: p.Latitude, Longitude: p.Longitude}
}

// RideResponse is the full read-only projection of a ride. The OTP is only
// filled in for the ride's customer and its assigned driver.
type RideResponse struct {
	RideID               uuid.UUID           `json:"ride_id"`
	CustomerID           uuid.UUID           `json:"customer_id"`
	DriverID             *uuid.UUID          `json:"driver_id,omitempty"`
	Status               types.RideStatus    `json:"status"`
	VehicleType          types.VehicleType   `json:"vehicle_type"`
	Pickup               PlaceResponse       `json:"pickup"`
	Destination          PlaceResponse       `json:"destination"`
	Fare                 models.Fare         `json:"fare"`
	DistanceKm           float64             `json:"distance_km"`
	EstimatedDurationMin int                 `json:"estimated_duration_minutes"`
	ActualDurationMin    *int                `json:"actual_duration_minutes,omitempty"`
	OTP                  string              `json:"otp,omitempty"`
	PaymentMethod        types.PaymentMethod `json:"payment_method"`
	PaymentStatus        types.PaymentStatus `json:"payment_status"`
	TransactionID        *string             `json:"transaction_id,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	AcceptedAt           *time.Time          `json:"accepted_at,omitempty"`
	RideStartedAt        *time.Time          `json:"ride_started_at,omitempty"`
	RideCompletedAt      *time.Time          `json:"ride_completed_at,omitempty"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty"`
	CancelledBy          *types.CancelledBy  `json:"cancelled_by,omitempty"`
	CancellationReason   *string             `json:"cancellation_reason,omitempty"`
}

func NewRideResponse(r *models.Ride, viewer models.Caller) RideResponse {
	resp := RideResponse{
		RideID:               r.ID,
		CustomerID:           r.CustomerID,
		DriverID:             r.DriverID,
		Status:               r.Status,
		VehicleType:          r.VehicleType,
		Pickup:               NewPlaceResponse(r.Pickup),
		Destination:          NewPlaceResponse(r.Destination),
		Fare:                 r.Fare,
		DistanceKm:           r.DistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		ActualDurationMin:    r.ActualDurationMin,
		PaymentMethod:        r.PaymentMethod,
		PaymentStatus:        r.PaymentStatus,
		TransactionID:        r.TransactionID,
		CreatedAt:            r.CreatedAt,
		AcceptedAt:           r.AcceptedAt,
		RideStartedAt:        r.RideStartedAt,
		RideCompletedAt:      r.RideCompletedAt,
		CancelledAt:          r.CancelledAt,
		CancelledBy:          r.CancelledBy,
		CancellationReason:   r.CancellationReason,
	}
	if r.IsParty(viewer) {
		resp.OTP = r.OTP
	}
	return resp
}

type CreateRideResponse struct {
	RideID               uuid.UUID        `json:"ride_id"`
	Status               types.RideStatus `json:"status"`
	Fare                 models.Fare      `json:"fare"`
	DistanceKm           float64          `json:"distance_km"`
	EstimatedDurationMin int              `json:"estimated_duration_minutes"`
	OTP                  string           `json:"otp"`
}

func NewCreateRideResponse(r *models.Ride) CreateRideResponse {
	return CreateRideResponse{
		RideID:               r.ID,
		Status:               r.Status,
		Fare:                 r.Fare,
		DistanceKm:           r.DistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		OTP:                  r.OTP,
	}
}

// AvailableRideResponse is a requested ride as listed to a driver.
type AvailableRideResponse struct {
	RideID               uuid.UUID           `json:"ride_id"`
	CustomerID           uuid.UUID           `json:"customer_id"`
	Pickup               PlaceResponse       `json:"pickup"`
	Destination          PlaceResponse       `json:"destination"`
	DistanceToPickupKm   float64             `json:"distance_to_pickup_km"`
	Fare                 models.Fare         `json:"fare"`
	DistanceKm           float64             `json:"distance_km"`
	EstimatedDurationMin int                 `json:"estimated_duration_minutes"`
	PaymentMethod        types.PaymentMethod `json:"payment_method"`
	CreatedAt            time.Time           `json:"created_at"`
}

func NewAvailableRideResponse(a models.AvailableRide) AvailableRideResponse {
	return AvailableRideResponse{
		RideID:               a.Ride.ID,
		CustomerID:           a.Ride.CustomerID,
		Pickup:               NewPlaceResponse(a.Ride.Pickup),
		Destination:          NewPlaceResponse(a.Ride.Destination),
		DistanceToPickupKm:   a.DistanceToPickupKm,
		Fare:                 a.Ride.Fare,
		DistanceKm:           a.Ride.DistanceKm,
		EstimatedDurationMin: a.Ride.EstimatedDurationMin,
		PaymentMethod:        a.Ride.PaymentMethod,
		CreatedAt:            a.Ride.CreatedAt,
	}
}

func checkAddress(v *validator.Validator, key, addr string) {
	v.Check(strings.TrimSpace(addr) != "", key, "must be provided")
	v.Check(len(addr) <= 255, key, "must not be more than 255 characters long")
}

// checkCoordinate validates the prefix_latitude and prefix_longitude pair.
func checkCoordinate(v *validator.Validator, prefix string, lat, lng *float64) {
	latKey, lngKey := prefix+"_latitude", prefix+"_longitude"
	if prefix == "" {
		latKey, lngKey = "latitude", "longitude"
	}

	v.Check(lat != nil, latKey, "must be provided")
	v.Check(lng != nil, lngKey, "must be provided")
	if lat != nil {
		v.Check(validator.Between(*lat, -90, 90), latKey, "must be between -90 and 90")
	}
	if lng != nil {
		v.Check(validator.Between(*lng, -180, 180), lngKey, "must be between -180 and 180")
	}
}

func checkVehicleType(v *validator.Validator, vt string) {
	v.Check(vt != "", "vehicle_type", "must be provided")
	if vt != "" {
		v.Check(types.VehicleType(vt).Valid(), "vehicle_type", "must be one of bike, cng, car")
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
