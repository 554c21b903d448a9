package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/servicetest"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type recordingHub struct {
	mu   sync.Mutex
	msgs map[uuid.UUID][]any
}

func (h *recordingHub) Publish(_ context.Context, key uuid.UUID, msg any) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.msgs == nil {
		h.msgs = make(map[uuid.UUID][]any)
	}
	h.msgs[key] = append(h.msgs[key], msg)
	return 1
}

func TestAuthorize(t *testing.T) {
	customer, driver := uuid.New(), uuid.New()
	ride := servicetest.NewRide(customer)
	ride.DriverID = &driver
	ride.Status = types.StatusAccepted

	svc := New(servicetest.NewRideStore(ride), &recordingHub{}, logger.Nop())

	tests := []struct {
		name   string
		caller models.Caller
		want   error
	}{
		{name: "customer", caller: models.Caller{ID: customer, Role: types.RolePassenger}},
		{name: "driver", caller: models.Caller{ID: driver, Role: types.RoleDriver}},
		{name: "admin", caller: models.Caller{ID: uuid.New(), Role: types.RoleAdmin}},
		{name: "other passenger", caller: models.Caller{ID: uuid.New(), Role: types.RolePassenger}, want: types.ErrNotAuthorized},
		{name: "other driver", caller: models.Caller{ID: uuid.New(), Role: types.RoleDriver}, want: types.ErrNotAuthorized},
		{name: "customer id with driver role", caller: models.Caller{ID: customer, Role: types.RoleDriver}, want: types.ErrNotAuthorized},
		{name: "anonymous", caller: models.Caller{}, want: types.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authorize(context.Background(), ride.ID, tt.caller)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}

	admin := models.Caller{ID: uuid.New(), Role: types.RoleAdmin}
	if _, err := svc.Authorize(context.Background(), uuid.New(), admin); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("want ErrRideNotFound, got %v", err)
	}
}

func TestDispatch(t *testing.T) {
	hub := &recordingHub{}
	svc := New(servicetest.NewRideStore(), hub, logger.Nop())
	rideID := uuid.New()

	event, err := models.NewRealtimeEvent(rideID, types.EventRideCancelled,
		models.RideCancelledPayload{Reason: "no show", CancelledBy: types.CancelledByDriver}, time.Now())
	if err != nil {
		t.Fatalf("event: %v", err)
	}

	if err := svc.Dispatch(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Dispatch(context.Background(), models.RealtimeEvent{Type: types.EventDriverLocation}); err != nil {
		t.Fatalf("event without ride must be dropped silently: %v", err)
	}

	if n := len(hub.msgs[rideID]); n != 1 {
		t.Fatalf("want 1 message for the ride, got %d", n)
	}
	if len(hub.msgs) != 1 {
		t.Fatalf("event without ride id must not be published")
	}
}
