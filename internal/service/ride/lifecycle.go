package ride

import (
	"math"
	"slices"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// transitions lists the allowed next statuses of every non-terminal status.
var transitions = map[types.RideStatus][]types.RideStatus{
	types.StatusRequested:  {types.StatusAccepted, types.StatusCancelled},
	types.StatusAccepted:   {types.StatusPickedUp, types.StatusCancelled},
	types.StatusPickedUp:   {types.StatusInProgress},
	types.StatusInProgress: {types.StatusCompleted},
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to types.RideStatus) bool {
	return slices.Contains(transitions[from], to)
}

// NextStatuses returns the statuses reachable from s. Nil for terminal statuses.
func NextStatuses(s types.RideStatus) []types.RideStatus {
	return slices.Clone(transitions[s])
}

// driverStatuses are the targets a driver may request through advance.
// accepted goes through dispatch, cancelled through cancel.
var driverStatuses = []types.RideStatus{types.StatusPickedUp, types.StatusInProgress, types.StatusCompleted}

// applyStatus moves r to status and stamps the lifecycle timestamps.
func applyStatus(r *models.Ride, to types.RideStatus, now time.Time) {
	r.Status = to

	switch to {
	case types.StatusPickedUp:
		if r.RideStartedAt == nil {
			r.RideStartedAt = &now
		}
	case types.StatusCompleted:
		r.RideCompletedAt = &now
		duration := actualDuration(r, now)
		r.ActualDurationMin = &duration
		r.PaymentStatus = types.PaymentPending
	}
}

// actualDuration is the whole minutes between pickup and completion.
func actualDuration(r *models.Ride, completedAt time.Time) int {
	start := r.CreatedAt
	if r.RideStartedAt != nil {
		start = *r.RideStartedAt
	}
	if completedAt.Before(start) {
		return 0
	}
	return int(math.Round(completedAt.Sub(start).Minutes()))
}

func applyCancel(r *models.Ride, by types.CancelledBy, reason string, now time.Time) {
	r.Status = types.StatusCancelled
	r.CancelledAt = &now
	r.CancelledBy = &by
	r.CancellationReason = &reason
}
