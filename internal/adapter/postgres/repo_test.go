package repo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/migrations"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("RIDE_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDE_TEST_DSN not set; skipping postgres tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE earnings, trip_history, location_samples, rides"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func newRide() *models.Ride {
	return &models.Ride{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		Pickup:      models.Place{Address: "Gulshan 1", Coordinate: models.Coordinate{Latitude: 23.7808, Longitude: 90.4152}},
		Destination: models.Place{Address: "Banani 11", Coordinate: models.Coordinate{Latitude: 23.7937, Longitude: 90.4066}},
		VehicleType: types.VehicleBike,
		Status:      types.StatusRequested,
		Fare: models.Fare{
			BaseFare:        20,
			DistanceFare:    10,
			TimeFare:        3,
			SurgeMultiplier: 1,
			TotalFare:       33,
		},
		DistanceKm:           1.3,
		EstimatedDurationMin: 3,
		OTP:                  "4821",
		PaymentMethod:        types.PaymentCash,
		PaymentStatus:        types.PaymentPending,
		CreatedAt:            time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRideRepo_CreateGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewRideRepo(db)

	ride := newRide()
	if err := repo.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.StatusRequested || got.DriverID != nil {
		t.Fatalf("unexpected ride state: %s driver=%v", got.Status, got.DriverID)
	}
	if got.Fare.TotalFare != 33 || got.OTP != "4821" {
		t.Fatalf("fare/otp not persisted: %+v %q", got.Fare, got.OTP)
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("want ErrRideNotFound, got %v", err)
	}
}

func TestRideRepo_ConcurrentAccept(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewRideRepo(db)

	ride := newRide()
	if err := repo.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Accept(ctx, ride.ID, uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, types.ErrRideUnavailable) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	got, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.StatusAccepted || got.DriverID == nil || got.AcceptedAt == nil {
		t.Fatalf("unexpected final state: %s driver=%v", got.Status, got.DriverID)
	}
}

func TestRideRepo_UpdateStatusConditional(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewRideRepo(db)

	ride := newRide()
	if err := repo.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}
	accepted, err := repo.Accept(ctx, ride.ID, uuid.New())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	now := time.Now().UTC()
	next := accepted.Clone()
	next.Status = types.StatusPickedUp
	next.RideStartedAt = &now
	if err := repo.UpdateStatus(ctx, next, types.StatusAccepted); err != nil {
		t.Fatalf("update: %v", err)
	}

	// same expected status a second time: the row moved on
	if err := repo.UpdateStatus(ctx, next, types.StatusAccepted); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}

	missing := next.Clone()
	missing.ID = uuid.New()
	if err := repo.UpdateStatus(ctx, missing, types.StatusAccepted); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("want ErrRideNotFound, got %v", err)
	}
}

func TestRideRepo_ListRequested(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewRideRepo(db)

	near := newRide()
	car := newRide()
	car.VehicleType = types.VehicleCar
	far := newRide()
	far.Pickup.Coordinate = models.Coordinate{Latitude: 22.3569, Longitude: 91.7832}

	for _, r := range []*models.Ride{near, car, far} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	box, err := geo.BoundingBox(models.Coordinate{Latitude: 23.78, Longitude: 90.41}, 5)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	rides, err := repo.ListRequested(ctx, types.VehicleBike, box)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != near.ID {
		t.Fatalf("want only the nearby bike ride, got %d rides", len(rides))
	}
}

func TestRideRepo_LatestLocationMonotonic(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewRideRepo(db)

	ride := newRide()
	if err := repo.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}
	driverID := uuid.New()
	if _, err := repo.Accept(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	t0 := time.Now().UTC().Truncate(time.Second)
	newer := models.DriverLocation{RideID: ride.ID, DriverID: driverID, Coordinate: models.Coordinate{Latitude: 23.79, Longitude: 90.41}, RecordedAt: t0}
	older := newer
	older.Coordinate.Latitude = 23.70
	older.RecordedAt = t0.Add(-time.Minute)

	if ok, err := repo.UpdateLatestLocation(ctx, newer); err != nil || !ok {
		t.Fatalf("newer must be stored: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.UpdateLatestLocation(ctx, older); err != nil || ok {
		t.Fatalf("older must be ignored: ok=%v err=%v", ok, err)
	}

	got, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LatestLocation == nil || got.LatestLocation.Coordinate.Latitude != 23.79 {
		t.Fatalf("latest location regressed: %+v", got.LatestLocation)
	}
}

func TestLocationRepo_History(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	rides := NewRideRepo(db)
	locations := NewLocationRepo(db)

	ride := newRide()
	if err := rides.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}
	driverID := uuid.New()
	if _, err := rides.Accept(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := locations.Latest(ctx, ride.ID); !errors.Is(err, types.ErrNoLocationData) {
		t.Fatalf("want ErrNoLocationData, got %v", err)
	}

	t0 := time.Now().UTC().Truncate(time.Second)
	for i := range 3 {
		s := &models.LocationSample{
			RideID:     ride.ID,
			DriverID:   driverID,
			Coordinate: models.Coordinate{Latitude: 23.78 + float64(i)/100, Longitude: 90.41},
			RecordedAt: t0.Add(time.Duration(i) * time.Second),
		}
		if err := locations.Append(ctx, s); err != nil {
			t.Fatalf("append: %v", err)
		}
		if s.ID == 0 {
			t.Fatalf("append must assign an id")
		}
	}

	history, err := locations.History(ctx, ride.ID, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || !history[0].RecordedAt.After(history[1].RecordedAt) {
		t.Fatalf("want 2 samples newest first, got %+v", history)
	}
}

func TestLocationRepo_AppendRequiresActiveRide(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	rides := NewRideRepo(db)
	locations := NewLocationRepo(db)

	ride := newRide()
	if err := rides.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}
	driverID := uuid.New()
	sample := func(driver uuid.UUID) *models.LocationSample {
		return &models.LocationSample{
			RideID:     ride.ID,
			DriverID:   driver,
			Coordinate: models.Coordinate{Latitude: 23.78, Longitude: 90.41},
			RecordedAt: time.Now().UTC(),
		}
	}

	// not accepted yet
	if err := locations.Append(ctx, sample(driverID)); !errors.Is(err, types.ErrInactiveRide) {
		t.Fatalf("want ErrInactiveRide before accept, got %v", err)
	}

	accepted, err := rides.Accept(ctx, ride.ID, driverID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := locations.Append(ctx, sample(uuid.New())); !errors.Is(err, types.ErrInactiveRide) {
		t.Fatalf("want ErrInactiveRide for another driver, got %v", err)
	}

	now := time.Now().UTC()
	cancelled := accepted.Clone()
	cancelled.Status = types.StatusCancelled
	cancelled.CancelledAt = &now
	by, reason := types.CancelledByCustomer, "changed plans"
	cancelled.CancelledBy, cancelled.CancellationReason = &by, &reason
	if err := rides.UpdateStatus(ctx, cancelled, types.StatusAccepted); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := locations.Append(ctx, sample(driverID)); !errors.Is(err, types.ErrInactiveRide) {
		t.Fatalf("want ErrInactiveRide after cancel, got %v", err)
	}

	if history, err := locations.History(ctx, ride.ID, 10); err != nil || len(history) != 0 {
		t.Fatalf("no sample may be stored: %d samples, err=%v", len(history), err)
	}
}

func TestSettlementRepo_Idempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	rides := NewRideRepo(db)
	repo := NewSettlementRepo(db)
	tm := trm.New(db)

	ride := newRide()
	if err := rides.Create(ctx, ride); err != nil {
		t.Fatalf("create: %v", err)
	}
	driverID := uuid.New()

	settle := func() (bool, error) {
		var inserted bool
		err := tm.Do(ctx, func(ctx context.Context) error {
			if _, err := repo.InsertTripHistory(ctx, &models.TripHistoryRecord{
				ID: uuid.New(), RideID: ride.ID, CustomerID: ride.CustomerID, DriverID: driverID,
				Pickup: ride.Pickup, Destination: ride.Destination, VehicleType: ride.VehicleType,
				Fare: ride.Fare, DistanceKm: ride.DistanceKm, DurationMin: 3,
				PaymentMethod: ride.PaymentMethod, TripDate: time.Now().UTC(),
			}); err != nil {
				return err
			}
			var err error
			inserted, err = repo.InsertEarnings(ctx, &models.EarningsRecord{
				ID: uuid.New(), DriverID: driverID, RideID: ride.ID, Date: time.Now().UTC(),
				TotalFare: 33, PlatformCommission: 4.95, DriverEarnings: 28.05,
				VehicleType: ride.VehicleType, PaymentMethod: ride.PaymentMethod,
			})
			return err
		})
		return inserted, err
	}

	if ok, err := settle(); err != nil || !ok {
		t.Fatalf("first settle: ok=%v err=%v", ok, err)
	}
	if ok, err := settle(); err != nil || ok {
		t.Fatalf("second settle must be a no-op: ok=%v err=%v", ok, err)
	}

	rec, err := repo.GetEarnings(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get earnings: %v", err)
	}
	if rec.DriverEarnings != 28.05 {
		t.Fatalf("want 28.05, got %v", rec.DriverEarnings)
	}
}
