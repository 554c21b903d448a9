package types

// ServiceMode selects which part of the system the binary runs.
type ServiceMode string

// Ride Service - rides, pricing, dispatch, lifecycle, tracking and payment callbacks over HTTP
// Realtime Service - websocket gateway fanning ride events out to subscribers
// Settlement Worker - retries and sweeps settlements that failed after payment confirmation
const (
	RideService      ServiceMode = "ride-service"
	RealtimeService  ServiceMode = "realtime-service"
	SettlementWorker ServiceMode = "settlement-worker"
)

func (m ServiceMode) Valid() bool {
	switch m {
	case RideService, RealtimeService, SettlementWorker:
		return true
	}
	return false
}

// UserRole is the role of an identified caller.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RolePassenger UserRole = "PASSENGER"
	RoleDriver    UserRole = "DRIVER"
	RoleAdmin     UserRole = "ADMIN"
)

func (r UserRole) Valid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}
