// Package servicetest provides in-memory stores and recorders for service tests.
package servicetest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// TxManager runs fn directly.
type TxManager struct{}

func (TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// RideStore keeps rides in memory. Every conditional write is a compare-and-swap under one mutex.
type RideStore struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride

	// Err, when set, is returned by every call.
	Err error
}

func NewRideStore(rides ...*models.Ride) *RideStore {
	s := &RideStore{rides: make(map[uuid.UUID]*models.Ride)}
	for _, r := range rides {
		s.rides[r.ID] = r.Clone()
	}
	return s
}

// Snapshot returns a copy of the stored ride or nil.
func (s *RideStore) Snapshot(id uuid.UUID) *models.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rides[id]; ok {
		return r.Clone()
	}
	return nil
}

func (s *RideStore) Create(_ context.Context, ride *models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.rides[ride.ID] = ride.Clone()
	return nil
}

func (s *RideStore) Get(_ context.Context, id uuid.UUID) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.rides[id]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return r.Clone(), nil
}

func (s *RideStore) Accept(_ context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.rides[rideID]
	if !ok || r.Status != types.StatusRequested || r.DriverID != nil {
		return nil, types.ErrRideUnavailable
	}
	now := time.Now().UTC()
	id := driverID
	r.DriverID = &id
	r.Status = types.StatusAccepted
	r.AcceptedAt = &now
	return r.Clone(), nil
}

func (s *RideStore) UpdateStatus(_ context.Context, ride *models.Ride, expected types.RideStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	r, ok := s.rides[ride.ID]
	if !ok {
		return types.ErrRideNotFound
	}
	if r.Status != expected {
		return types.ErrInvalidTransition
	}
	c := ride.Clone()
	r.Status = c.Status
	r.RideStartedAt = c.RideStartedAt
	r.RideCompletedAt = c.RideCompletedAt
	r.ActualDurationMin = c.ActualDurationMin
	r.PaymentStatus = c.PaymentStatus
	r.CancelledAt = c.CancelledAt
	r.CancelledBy = c.CancelledBy
	r.CancellationReason = c.CancellationReason
	return nil
}

func (s *RideStore) ListRequested(_ context.Context, vt types.VehicleType, box geo.Box) ([]*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*models.Ride
	for _, r := range s.rides {
		if r.Status == types.StatusRequested && r.DriverID == nil && r.VehicleType == vt && box.Contains(r.Pickup.Coordinate) {
			out = append(out, r.Clone())
		}
	}
	// map order is random, mimic an unordered SQL result deterministically
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *RideStore) UpdateLatestLocation(_ context.Context, loc models.DriverLocation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	r, ok := s.rides[loc.RideID]
	if !ok || !r.Status.IsActive() {
		return false, nil
	}
	if r.LatestLocation != nil && r.LatestLocation.RecordedAt.After(loc.RecordedAt) {
		return false, nil
	}
	l := loc
	r.LatestLocation = &l
	return true, nil
}

func (s *RideStore) UpdatePayment(_ context.Context, rideID uuid.UUID, change models.PaymentChange, expected types.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	r, ok := s.rides[rideID]
	if !ok || r.PaymentStatus != expected {
		return false, nil
	}
	r.PaymentStatus = change.Status
	if change.Method != "" {
		r.PaymentMethod = change.Method
	}
	if change.TransactionID != nil {
		tx := *change.TransactionID
		r.TransactionID = &tx
	}
	return true, nil
}

// LocationStore keeps samples in memory. With Rides set, Append refuses samples
// for rides that are not active for the sample's driver, like the SQL insert.
type LocationStore struct {
	mu      sync.Mutex
	nextID  int64
	samples []models.LocationSample

	Rides *RideStore
	Err   error
}

func NewLocationStore() *LocationStore {
	return &LocationStore{}
}

func (s *LocationStore) Append(_ context.Context, sample *models.LocationSample) error {
	if s.Rides != nil {
		ride := s.Rides.Snapshot(sample.RideID)
		if ride == nil || !ride.IsDriver(sample.DriverID) || !ride.Status.IsActive() {
			return types.ErrInactiveRide
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.nextID++
	sample.ID = s.nextID
	s.samples = append(s.samples, *sample)
	return nil
}

func (s *LocationStore) Latest(ctx context.Context, rideID uuid.UUID) (*models.LocationSample, error) {
	h, err := s.History(ctx, rideID, 1)
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, types.ErrNoLocationData
	}
	return &h[0], nil
}

func (s *LocationStore) History(_ context.Context, rideID uuid.UUID, limit int) ([]models.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.LocationSample
	for _, sm := range s.samples {
		if sm.RideID == rideID {
			out = append(out, sm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LocationCache is a map backed stand-in for the Redis cache.
type LocationCache struct {
	mu   sync.Mutex
	locs map[uuid.UUID]models.DriverLocation

	Err error
}

func NewLocationCache() *LocationCache {
	return &LocationCache{locs: make(map[uuid.UUID]models.DriverLocation)}
}

func (c *LocationCache) Set(_ context.Context, loc models.DriverLocation) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	if cur, ok := c.locs[loc.RideID]; ok && cur.RecordedAt.After(loc.RecordedAt) {
		return false, nil
	}
	c.locs[loc.RideID] = loc
	return true, nil
}

func (c *LocationCache) Get(_ context.Context, rideID uuid.UUID) (*models.DriverLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	loc, ok := c.locs[rideID]
	if !ok {
		return nil, types.ErrCacheMiss
	}
	return &loc, nil
}

// SettlementStore keeps earnings and trip history with one record per ride.
type SettlementStore struct {
	mu       sync.Mutex
	rides    *RideStore
	earnings map[uuid.UUID]models.EarningsRecord
	trips    map[uuid.UUID]models.TripHistoryRecord

	// FailEarnings, when set, is returned by InsertEarnings.
	FailEarnings error
}

func NewSettlementStore(rides *RideStore) *SettlementStore {
	return &SettlementStore{
		rides:    rides,
		earnings: make(map[uuid.UUID]models.EarningsRecord),
		trips:    make(map[uuid.UUID]models.TripHistoryRecord),
	}
}

func (s *SettlementStore) InsertTripHistory(_ context.Context, rec *models.TripHistoryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[rec.RideID]; ok {
		return false, nil
	}
	s.trips[rec.RideID] = *rec
	return true, nil
}

func (s *SettlementStore) InsertEarnings(_ context.Context, rec *models.EarningsRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEarnings != nil {
		return false, s.FailEarnings
	}
	if _, ok := s.earnings[rec.RideID]; ok {
		return false, nil
	}
	s.earnings[rec.RideID] = *rec
	return true, nil
}

func (s *SettlementStore) GetEarnings(_ context.Context, rideID uuid.UUID) (*models.EarningsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.earnings[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return &rec, nil
}

func (s *SettlementStore) ListUnsettled(_ context.Context, limit int) ([]*models.Ride, error) {
	s.rides.mu.Lock()
	var paid []*models.Ride
	for _, r := range s.rides.rides {
		if r.Status == types.StatusCompleted && r.PaymentStatus == types.PaymentCompleted {
			paid = append(paid, r.Clone())
		}
	}
	s.rides.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Ride
	for _, r := range paid {
		if _, ok := s.earnings[r.ID]; !ok && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

// Counts returns the number of earnings and trip history records of a ride.
func (s *SettlementStore) Counts(rideID uuid.UUID) (earnings, trips int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.earnings[rideID]; ok {
		earnings = 1
	}
	if _, ok := s.trips[rideID]; ok {
		trips = 1
	}
	return earnings, trips
}

// Publisher records published events and retry messages.
type Publisher struct {
	mu      sync.Mutex
	events  []models.RealtimeEvent
	retries []models.SettlementRetryMessage

	Err error
}

func (p *Publisher) PublishRideEvent(_ context.Context, event models.RealtimeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *Publisher) PublishSettlementRetry(_ context.Context, msg models.SettlementRetryMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.retries = append(p.retries, msg)
	return nil
}

func (p *Publisher) Events() []models.RealtimeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// EventTypes returns the types of the recorded events in publish order.
func (p *Publisher) EventTypes() []types.RealtimeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.RealtimeEvent, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *Publisher) Retries() []models.SettlementRetryMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.retries)
}

// NewRide returns a requested bike ride with fixed coordinates.
func NewRide(customerID uuid.UUID) *models.Ride {
	return &models.Ride{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Pickup:      models.Place{Address: "Dhanmondi 27", Coordinate: models.Coordinate{Latitude: 23.7379, Longitude: 90.3947}},
		Destination: models.Place{Address: "New Market", Coordinate: models.Coordinate{Latitude: 23.7272, Longitude: 90.3896}},
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
		CreatedAt:            time.Now().UTC(),
	}
}
