package ride

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/internal/service/pricing"
	"github.com/Temutjin2k/ride-dispatch/internal/service/servicetest"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var clock = time.Date(2024, time.May, 15, 6, 0, 0, 0, time.UTC) // Wednesday noon in Dhaka

type fixture struct {
	svc   *RideService
	store *servicetest.RideStore
	pub   *servicetest.Publisher
}

func newFixture(rides ...*models.Ride) fixture {
	store := servicetest.NewRideStore(rides...)
	pub := &servicetest.Publisher{}
	engine := pricing.New(pricing.DefaultSurgeRules(time.FixedZone("BDT", 6*60*60)),
		pricing.WithClock(func() time.Time { return clock }))

	svc := NewRideService(store, engine, notify.New(pub, logger.Nop()), logger.Nop())
	svc.now = func() time.Time { return clock }

	return fixture{svc: svc, store: store, pub: pub}
}

func acceptedRide(customer, driver uuid.UUID) *models.Ride {
	r := servicetest.NewRide(customer)
	r.Status = types.StatusAccepted
	r.DriverID = &driver
	at := clock.Add(-5 * time.Minute)
	r.AcceptedAt = &at
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture()
	customer := uuid.New()

	ride, err := f.svc.Create(context.Background(), models.RideRequest{
		CustomerID:    customer,
		Pickup:        models.Place{Address: "Dhanmondi 27", Coordinate: models.Coordinate{Latitude: 23.7379, Longitude: 90.3947}},
		Destination:   models.Place{Address: "New Market", Coordinate: models.Coordinate{Latitude: 23.7272, Longitude: 90.3896}},
		VehicleType:   types.VehicleBike,
		PaymentMethod: types.PaymentCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != types.StatusRequested || ride.DriverID != nil {
		t.Fatalf("new ride must be requested without driver: %+v", ride)
	}
	if ride.Fare.TotalFare != 33 || ride.EstimatedDurationMin != 3 {
		t.Fatalf("unexpected pricing: fare=%+v duration=%d", ride.Fare, ride.EstimatedDurationMin)
	}
	if len(ride.OTP) != 4 {
		t.Fatalf("otp must have 4 digits, got %q", ride.OTP)
	}
	if ride.PaymentStatus != types.PaymentPending {
		t.Fatalf("payment must start pending, got %s", ride.PaymentStatus)
	}
	if stored := f.store.Snapshot(ride.ID); stored == nil || stored.CustomerID != customer {
		t.Fatalf("ride not stored: %+v", stored)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	valid := models.RideRequest{
		CustomerID:    uuid.New(),
		Pickup:        models.Place{Address: "A", Coordinate: models.Coordinate{Latitude: 23.7, Longitude: 90.3}},
		Destination:   models.Place{Address: "B", Coordinate: models.Coordinate{Latitude: 23.8, Longitude: 90.4}},
		VehicleType:   types.VehicleCar,
		PaymentMethod: types.PaymentCard,
	}

	tests := []struct {
		name   string
		mutate func(r *models.RideRequest)
		want   error
	}{
		{name: "no customer", mutate: func(r *models.RideRequest) { r.CustomerID = uuid.Nil }, want: types.ErrMissingField},
		{name: "no pickup address", mutate: func(r *models.RideRequest) { r.Pickup.Address = " " }, want: types.ErrMissingField},
		{name: "bad vehicle", mutate: func(r *models.RideRequest) { r.VehicleType = "tuk-tuk" }, want: types.ErrInvalidVehicleType},
		{name: "bad payment", mutate: func(r *models.RideRequest) { r.PaymentMethod = "crypto" }, want: types.ErrInvalidPaymentMethod},
		{name: "bad coordinate", mutate: func(r *models.RideRequest) { r.Destination.Latitude = 123 }, want: types.ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture()
	admin := models.Caller{ID: uuid.New(), Role: types.RoleAdmin}
	if _, err := f.svc.Get(context.Background(), uuid.New(), admin); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("want ErrRideNotFound, got %v", err)
	}
}

func TestGet_Visibility(t *testing.T) {
	customer, driver := uuid.New(), uuid.New()
	ride := servicetest.NewRide(customer)
	ride.DriverID = &driver
	ride.Status = types.StatusAccepted
	f := newFixture(ride)

	tests := []struct {
		name   string
		caller models.Caller
		want   error
	}{
		{"customer", models.Caller{ID: customer, Role: types.RolePassenger}, nil},
		{"assigned driver", models.Caller{ID: driver, Role: types.RoleDriver}, nil},
		{"admin", models.Caller{ID: uuid.New(), Role: types.RoleAdmin}, nil},
		{"other passenger", models.Caller{ID: uuid.New(), Role: types.RolePassenger}, types.ErrNotAuthorized},
		{"other driver", models.Caller{ID: uuid.New(), Role: types.RoleDriver}, types.ErrNotAuthorized},
		{"customer id with driver role", models.Caller{ID: customer, Role: types.RoleDriver}, types.ErrNotAuthorized},
		{"anonymous", models.Caller{}, types.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Get(context.Background(), ride.ID, tt.caller)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if tt.want == nil && got.ID != ride.ID {
				t.Fatalf("wrong ride returned: %v", got.ID)
			}
		})
	}
}

func TestAdvance_RequestedToCompletedIsInvalid(t *testing.T) {
	ride := servicetest.NewRide(uuid.New())
	f := newFixture(ride)

	for _, target := range []types.RideStatus{types.StatusCompleted, types.StatusPickedUp, types.StatusInProgress, types.StatusAccepted, types.StatusCancelled} {
		_, err := f.svc.Advance(context.Background(), ride.ID, uuid.New(), target, ride.OTP)
		if !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("requested → %s: want ErrInvalidTransition, got %v", target, err)
		}
	}
	if got := f.store.Snapshot(ride.ID).Status; got != types.StatusRequested {
		t.Fatalf("status must stay requested, got %s", got)
	}
}

func TestAdvance_OTPGate(t *testing.T) {
	driver := uuid.New()
	ride := acceptedRide(uuid.New(), driver)
	f := newFixture(ride)
	ctx := context.Background()

	for range 3 {
		if _, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusPickedUp, "0000"); !errors.Is(err, types.ErrInvalidOTP) {
			t.Fatalf("want ErrInvalidOTP, got %v", err)
		}
		if got := f.store.Snapshot(ride.ID); got.Status != types.StatusAccepted || got.RideStartedAt != nil {
			t.Fatalf("wrong otp must leave ride untouched: %+v", got)
		}
	}

	updated, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusPickedUp, ride.OTP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != types.StatusPickedUp || updated.RideStartedAt == nil {
		t.Fatalf("want picked_up with ride_started_at, got %+v", updated)
	}
	if got := f.store.Snapshot(ride.ID); got.RideStartedAt == nil || !got.RideStartedAt.Equal(clock) {
		t.Fatalf("ride_started_at not stored: %v", got.RideStartedAt)
	}
}

func TestAdvance_OTPIsCaseSensitiveExact(t *testing.T) {
	driver := uuid.New()
	ride := acceptedRide(uuid.New(), driver)
	ride.OTP = "0042"
	f := newFixture(ride)

	for _, wrong := range []string{"42", " 0042", "0042 ", ""} {
		if _, err := f.svc.Advance(context.Background(), ride.ID, driver, types.StatusPickedUp, wrong); !errors.Is(err, types.ErrInvalidOTP) {
			t.Fatalf("otp %q: want ErrInvalidOTP, got %v", wrong, err)
		}
	}
}

func TestAdvance_NotAssignedDriver(t *testing.T) {
	ride := acceptedRide(uuid.New(), uuid.New())
	f := newFixture(ride)

	_, err := f.svc.Advance(context.Background(), ride.ID, uuid.New(), types.StatusPickedUp, ride.OTP)
	if !errors.Is(err, types.ErrNotAuthorized) {
		t.Fatalf("want ErrNotAuthorized, got %v", err)
	}
}

func TestAdvance_FullTrip(t *testing.T) {
	driver := uuid.New()
	ride := acceptedRide(uuid.New(), driver)
	f := newFixture(ride)
	ctx := context.Background()

	if _, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusPickedUp, ride.OTP); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if _, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusInProgress, ""); err != nil {
		t.Fatalf("in progress: %v", err)
	}

	f.svc.now = func() time.Time { return clock.Add(12 * time.Minute) }
	done, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if done.ActualDurationMin == nil || *done.ActualDurationMin != 12 {
		t.Fatalf("want actual duration 12, got %v", done.ActualDurationMin)
	}
	if done.PaymentStatus != types.PaymentPending || done.RideCompletedAt == nil {
		t.Fatalf("unexpected completed ride: %+v", done)
	}

	want := []types.RealtimeEvent{
		types.EventRideStatusChanged,
		types.EventRideStatusChanged,
		types.EventRideStatusChanged,
		types.EventRideCompleted,
	}
	if got := f.pub.EventTypes(); !slices.Equal(got, want) {
		t.Fatalf("want events %v, got %v", want, got)
	}

	if _, err := f.svc.Advance(ctx, ride.ID, driver, types.StatusCompleted, ""); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("completed is terminal, got %v", err)
	}
}

func TestAdvance_ConcurrentTransitionsOneWins(t *testing.T) {
	driver := uuid.New()
	ride := acceptedRide(uuid.New(), driver)
	ride.Status = types.StatusInProgress
	start := clock.Add(-10 * time.Minute)
	ride.RideStartedAt = &start
	f := newFixture(ride)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Advance(context.Background(), ride.ID, driver, types.StatusCompleted, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, types.ErrInvalidTransition):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != n-1 {
		t.Fatalf("want 1 success and %d conflicts, got %d and %d", n-1, succeeded, conflicts)
	}
}

func TestCancel_Boundary(t *testing.T) {
	customer := uuid.New()
	admin := models.Caller{ID: uuid.New(), Role: types.RoleAdmin}

	tests := []struct {
		status types.RideStatus
		ok     bool
	}{
		{status: types.StatusRequested, ok: true},
		{status: types.StatusAccepted, ok: true},
		{status: types.StatusPickedUp},
		{status: types.StatusInProgress},
		{status: types.StatusCompleted},
		{status: types.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			ride := servicetest.NewRide(customer)
			ride.Status = tt.status
			f := newFixture(ride)

			got, err := f.svc.Cancel(context.Background(), ride.ID, admin, "changed plans")
			if !tt.ok {
				if !errors.Is(err, types.ErrInvalidTransition) {
					t.Fatalf("want ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != types.StatusCancelled || *got.CancelledBy != types.CancelledByAdmin || *got.CancellationReason != "changed plans" {
				t.Fatalf("unexpected cancelled ride: %+v", got)
			}
		})
	}
}

func TestCancel_Authorization(t *testing.T) {
	customer, driver := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		caller models.Caller
		want   error
		by     types.CancelledBy
	}{
		{name: "owner", caller: models.Caller{ID: customer, Role: types.RolePassenger}, by: types.CancelledByCustomer},
		{name: "assigned driver", caller: models.Caller{ID: driver, Role: types.RoleDriver}, by: types.CancelledByDriver},
		{name: "other customer", caller: models.Caller{ID: uuid.New(), Role: types.RolePassenger}, want: types.ErrNotAuthorized},
		{name: "other driver", caller: models.Caller{ID: uuid.New(), Role: types.RoleDriver}, want: types.ErrNotAuthorized},
		{name: "unknown role", caller: models.Caller{ID: customer, Role: "GUEST"}, want: types.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := acceptedRide(customer, driver)
			f := newFixture(ride)

			got, err := f.svc.Cancel(context.Background(), ride.ID, tt.caller, "")
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("want %v, got %v", tt.want, err)
				}
				if f.store.Snapshot(ride.ID).Status != types.StatusAccepted {
					t.Fatalf("refused cancel must not change the ride")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got.CancelledBy != tt.by {
				t.Fatalf("want cancelled_by %s, got %s", tt.by, *got.CancelledBy)
			}

			want := []types.RealtimeEvent{types.EventRideCancelled, types.EventRideStatusChanged}
			if events := f.pub.EventTypes(); !slices.Equal(events, want) {
				t.Fatalf("want events %v, got %v", want, events)
			}
		})
	}
}
