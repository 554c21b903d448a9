package dispatch

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
	"github.com/Temutjin2k/ride-dispatch/internal/service/servicetest"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var driverAt = models.Coordinate{Latitude: 23.7380, Longitude: 90.3950}

func rideAt(lat, lng float64, vt types.VehicleType, created time.Time) *models.Ride {
	r := servicetest.NewRide(uuid.New())
	r.Pickup.Coordinate = models.Coordinate{Latitude: lat, Longitude: lng}
	r.VehicleType = vt
	r.CreatedAt = created
	return r
}

func newService(store *servicetest.RideStore) (*Service, *servicetest.Publisher) {
	pub := &servicetest.Publisher{}
	return New(store, notify.New(pub, logger.Nop()), Config{DefaultRadiusKm: 5, MaxRadiusKm: 20}, logger.Nop()), pub
}

func TestFindAvailable_FiltersAndOrders(t *testing.T) {
	base := time.Date(2024, time.May, 15, 6, 0, 0, 0, time.UTC)

	near := rideAt(23.7385, 90.3952, types.VehicleBike, base.Add(2*time.Minute))
	// same pickup as near, created earlier
	nearOlder := rideAt(23.7385, 90.3952, types.VehicleBike, base)
	mid := rideAt(23.7500, 90.4000, types.VehicleBike, base)
	far := rideAt(23.9000, 90.5000, types.VehicleBike, base)
	otherType := rideAt(23.7381, 90.3951, types.VehicleCar, base)
	taken := rideAt(23.7381, 90.3951, types.VehicleBike, base)
	driver := uuid.New()
	taken.DriverID = &driver
	taken.Status = types.StatusAccepted

	svc, _ := newService(servicetest.NewRideStore(near, nearOlder, mid, far, otherType, taken))

	got, err := svc.FindAvailable(context.Background(), driverAt, types.VehicleBike, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []uuid.UUID
	for _, a := range got {
		ids = append(ids, a.Ride.ID)
	}
	want := []uuid.UUID{nearOlder.ID, near.ID, mid.ID}
	if !slices.Equal(ids, want) {
		t.Fatalf("want order %v, got %v", want, ids)
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceToPickupKm < got[i-1].DistanceToPickupKm {
			t.Fatalf("results must be nearest first")
		}
	}
}

func TestFindAvailable_RadiusDefaultsAndCap(t *testing.T) {
	// ~11 km north of the driver
	r := rideAt(23.8380, 90.3950, types.VehicleCNG, time.Now())
	svc, _ := newService(servicetest.NewRideStore(r))
	ctx := context.Background()

	got, err := svc.FindAvailable(ctx, driverAt, types.VehicleCNG, 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("default radius must exclude the ride: %v %v", got, err)
	}

	got, err = svc.FindAvailable(ctx, driverAt, types.VehicleCNG, 1000)
	if err != nil || len(got) != 1 {
		t.Fatalf("capped radius must include the ride: %v %v", got, err)
	}
}

func TestFindAvailable_Validation(t *testing.T) {
	svc, _ := newService(servicetest.NewRideStore())

	if _, err := svc.FindAvailable(context.Background(), driverAt, "boat", 5); !errors.Is(err, types.ErrInvalidVehicleType) {
		t.Fatalf("want ErrInvalidVehicleType, got %v", err)
	}
	if _, err := svc.FindAvailable(context.Background(), models.Coordinate{Latitude: -95}, types.VehicleBike, 5); !errors.Is(err, types.ErrInvalidCoordinate) {
		t.Fatalf("want ErrInvalidCoordinate, got %v", err)
	}
}

func TestAccept(t *testing.T) {
	ride := servicetest.NewRide(uuid.New())
	store := servicetest.NewRideStore(ride)
	svc, pub := newService(store)
	driver := uuid.New()

	got, err := svc.Accept(context.Background(), ride.ID, driver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != types.StatusAccepted || !got.IsDriver(driver) || got.AcceptedAt == nil {
		t.Fatalf("unexpected accepted ride: %+v", got)
	}
	if got.OTP != ride.OTP {
		t.Fatalf("accepted summary must carry the otp")
	}

	want := []types.RealtimeEvent{types.EventDriverAssigned, types.EventRideStatusChanged}
	if events := pub.EventTypes(); !slices.Equal(events, want) {
		t.Fatalf("want events %v, got %v", want, events)
	}

	if _, err := svc.Accept(context.Background(), ride.ID, uuid.New()); !errors.Is(err, types.ErrRideUnavailable) {
		t.Fatalf("second accept: want ErrRideUnavailable, got %v", err)
	}
	if _, err := svc.Accept(context.Background(), uuid.New(), driver); !errors.Is(err, types.ErrRideUnavailable) {
		t.Fatalf("unknown ride: want ErrRideUnavailable, got %v", err)
	}
}

func TestAccept_CancelledRideUnavailable(t *testing.T) {
	ride := servicetest.NewRide(uuid.New())
	ride.Status = types.StatusCancelled
	svc, _ := newService(servicetest.NewRideStore(ride))

	if _, err := svc.Accept(context.Background(), ride.ID, uuid.New()); !errors.Is(err, types.ErrRideUnavailable) {
		t.Fatalf("want ErrRideUnavailable, got %v", err)
	}
}

func TestAccept_ConcurrentExactlyOneWinner(t *testing.T) {
	ride := servicetest.NewRide(uuid.New())
	store := servicetest.NewRideStore(ride)
	svc, _ := newService(store)

	const n = 50
	drivers := make([]uuid.UUID, n)
	for i := range drivers {
		drivers[i] = uuid.New()
	}

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		winners []uuid.UUID
		lost    int
	)
	for _, d := range drivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Accept(context.Background(), ride.ID, d)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, d)
			case errors.Is(err, types.ErrRideUnavailable):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || lost != n-1 {
		t.Fatalf("want exactly 1 winner and %d losers, got %d and %d", n-1, len(winners), lost)
	}
	if stored := store.Snapshot(ride.ID); !stored.IsDriver(winners[0]) {
		t.Fatalf("stored driver must be the winner")
	}
}
