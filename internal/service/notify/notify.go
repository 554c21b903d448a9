// Package notify publishes ride events onto the realtime channel of a ride.
package notify

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// Publisher is the publish(channel, event) capability of the realtime transport.
type Publisher interface {
	PublishRideEvent(ctx context.Context, event models.RealtimeEvent) error
}

// Notifier builds realtime events and hands them to a Publisher.
// Publish failures are logged and never returned: the ride state is already committed.
type Notifier struct {
	pub Publisher
	l   logger.Logger
	now func() time.Time
}

func New(pub Publisher, l logger.Logger) *Notifier {
	return &Notifier{
		pub: pub,
		l:   l,
		now: time.Now,
	}
}

var statusMessages = map[types.RideStatus]string{
	types.StatusAccepted:   "A driver has accepted your ride",
	types.StatusPickedUp:   "Your driver has picked you up",
	types.StatusInProgress: "Your ride is in progress",
	types.StatusCompleted:  "You have arrived at your destination",
	types.StatusCancelled:  "The ride has been cancelled",
}

// StatusMessage returns the human readable message for a status.
func StatusMessage(s types.RideStatus) string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return "Ride status changed to " + s.String()
}

func (n *Notifier) Notify(ctx context.Context, rideID uuid.UUID, typ types.RealtimeEvent, payload any) {
	if n == nil || n.pub == nil {
		return
	}
	ctx = wrap.WithRideID(ctx, rideID.String())

	event, err := models.NewRealtimeEvent(rideID, typ, payload, n.now().UTC())
	if err != nil {
		n.l.Error(ctx, "failed to build realtime event", err, "event", typ.String())
		return
	}

	if err := n.pub.PublishRideEvent(ctx, event); err != nil {
		n.l.Error(wrap.WithAction(ctx, types.ActionPublishFailed), "failed to publish realtime event", err, "event", typ.String())
		return
	}

	n.l.Debug(ctx, "realtime event published", "event", typ.String())
}

// StatusChanged publishes ride_status_changed for the current status of ride.
func (n *Notifier) StatusChanged(ctx context.Context, ride *models.Ride) {
	n.Notify(ctx, ride.ID, types.EventRideStatusChanged, models.RideStatusChangedPayload{
		Status:  ride.Status,
		Message: StatusMessage(ride.Status),
	})
}

func (n *Notifier) DriverAssigned(ctx context.Context, ride *models.Ride) {
	if ride.DriverID == nil {
		return
	}
	payload := models.DriverAssignedPayload{DriverID: *ride.DriverID}
	if ride.AcceptedAt != nil {
		payload.AcceptedAt = *ride.AcceptedAt
	}
	n.Notify(ctx, ride.ID, types.EventDriverAssigned, payload)
	n.StatusChanged(ctx, ride)
}

func (n *Notifier) RideCompleted(ctx context.Context, ride *models.Ride) {
	payload := models.RideCompletedPayload{Fare: ride.Fare}
	if ride.ActualDurationMin != nil {
		payload.ActualDurationMinutes = *ride.ActualDurationMin
	}
	n.StatusChanged(ctx, ride)
	n.Notify(ctx, ride.ID, types.EventRideCompleted, payload)
}

func (n *Notifier) RideCancelled(ctx context.Context, ride *models.Ride) {
	payload := models.RideCancelledPayload{}
	if ride.CancellationReason != nil {
		payload.Reason = *ride.CancellationReason
	}
	if ride.CancelledBy != nil {
		payload.CancelledBy = *ride.CancelledBy
	}
	n.Notify(ctx, ride.ID, types.EventRideCancelled, payload)
	n.StatusChanged(ctx, ride)
}

func (n *Notifier) DriverLocation(ctx context.Context, loc models.DriverLocation) {
	n.Notify(ctx, loc.RideID, types.EventDriverLocation, models.DriverLocationPayload{
		Latitude:  loc.Coordinate.Latitude,
		Longitude: loc.Coordinate.Longitude,
		Heading:   loc.Heading,
		Speed:     loc.Speed,
		Timestamp: loc.RecordedAt,
	})
}
