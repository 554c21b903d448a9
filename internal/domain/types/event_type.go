package types

// RealtimeEvent is the type of an event published on a ride channel.
type RealtimeEvent string

func (e RealtimeEvent) String() string {
	return string(e)
}

const (
	EventDriverLocation    RealtimeEvent = "driver_location"
	EventRideStatusChanged RealtimeEvent = "ride_status_changed"
	EventDriverAssigned    RealtimeEvent = "driver_assigned"
	EventRideCompleted     RealtimeEvent = "ride_completed"
	EventRideCancelled     RealtimeEvent = "ride_cancelled"
)
