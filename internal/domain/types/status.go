package types

// RideStatus is a state of the ride lifecycle.
type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	StatusRequested  RideStatus = "requested"
	StatusAccepted   RideStatus = "accepted"
	StatusPickedUp   RideStatus = "picked_up"
	StatusInProgress RideStatus = "in_progress"
	StatusCompleted  RideStatus = "completed"
	StatusCancelled  RideStatus = "cancelled"
)

func (s RideStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusPickedUp, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a driver is attached and the trip is not finished.
func (s RideStatus) IsActive() bool {
	return s == StatusAccepted || s == StatusPickedUp || s == StatusInProgress
}

// IsTerminal reports whether no further transition is possible.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// VehicleType constrains which drivers may match a ride.
type VehicleType string

func (v VehicleType) String() string {
	return string(v)
}

const (
	VehicleBike VehicleType = "bike"
	VehicleCNG  VehicleType = "cng"
	VehicleCar  VehicleType = "car"
)

// VehicleTypes lists every supported type in display order.
var VehicleTypes = []VehicleType{VehicleBike, VehicleCNG, VehicleCar}

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleBike, VehicleCNG, VehicleCar:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCard          PaymentMethod = "card"
	PaymentMobileBanking PaymentMethod = "mobile_banking"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentMobileBanking:
		return true
	}
	return false
}

// CancelledBy records which party cancelled a ride.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByDriver   CancelledBy = "driver"
	CancelledByAdmin    CancelledBy = "admin"
)

// CancelledByRole maps a caller role to the cancellation party.
func CancelledByRole(role UserRole) (CancelledBy, bool) {
	switch role {
	case RolePassenger:
		return CancelledByCustomer, true
	case RoleDriver:
		return CancelledByDriver, true
	case RoleAdmin:
		return CancelledByAdmin, true
	}
	return "", false
}
