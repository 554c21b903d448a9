package types

import "errors"

// Validation
var (
	ErrInvalidCoordinate     = errors.New("invalid coordinate")
	ErrInvalidVehicleType    = errors.New("invalid vehicle type")
	ErrMissingField          = errors.New("missing required field")
	ErrInvalidPaymentStatus  = errors.New("invalid payment status")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrInvalidLocationSample = errors.New("invalid location sample")
)

// Authorization
var (
	ErrNotAuthorized = errors.New("not authorized for this ride")
)

// State
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRideUnavailable   = errors.New("this ride is no longer available")
	ErrInactiveRide      = errors.New("ride is not active")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrAlreadySettled    = errors.New("payment already completed and settled")
)

// Not found
var (
	ErrRideNotFound   = errors.New("ride not found")
	ErrNoLocationData = errors.New("no location data for ride")
)

// Infrastructure
var (
	ErrDatabaseFailed = errors.New("database operation failed")
	ErrPublishFailed  = errors.New("failed to publish message")
	ErrCacheMiss      = errors.New("cache miss")
)
