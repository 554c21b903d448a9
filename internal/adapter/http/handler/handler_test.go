package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/servicetest"
	"github.com/Temutjin2k/ride-dispatch/internal/service/tracking"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type stubRides struct {
	created *models.RideRequest
	err     error
}

func (s *stubRides) Create(_ context.Context, req models.RideRequest) (*models.Ride, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &req
	return servicetest.NewRide(req.CustomerID), nil
}

func (s *stubRides) Get(_ context.Context, id uuid.UUID, _ models.Caller) (*models.Ride, error) {
	if s.err != nil {
		return nil, s.err
	}
	ride := servicetest.NewRide(uuid.New())
	ride.ID = id
	return ride, nil
}

func (s *stubRides) Advance(_ context.Context, id, _ uuid.UUID, target types.RideStatus, _ string) (*models.Ride, error) {
	if s.err != nil {
		return nil, s.err
	}
	ride := servicetest.NewRide(uuid.New())
	ride.ID, ride.Status = id, target
	return ride, nil
}

func (s *stubRides) Cancel(_ context.Context, id uuid.UUID, _ models.Caller, _ string) (*models.Ride, error) {
	return nil, s.err
}

type stubDispatch struct {
	radius float64
	err    error
}

func (s *stubDispatch) FindAvailable(_ context.Context, _ models.Coordinate, _ types.VehicleType, radiusKm float64) ([]models.AvailableRide, error) {
	s.radius = radiusKm
	return nil, s.err
}

func (s *stubDispatch) Accept(_ context.Context, _, _ uuid.UUID) (*models.Ride, error) {
	return nil, s.err
}

type stubTracking struct {
	limit int
	err   error
}

func (s *stubTracking) Record(_ context.Context, sample models.LocationSample) (*models.LocationSample, error) {
	return &sample, s.err
}

func (s *stubTracking) Latest(_ context.Context, _ uuid.UUID, _ models.Caller) (*models.DriverLocation, error) {
	return nil, s.err
}

func (s *stubTracking) History(_ context.Context, _ uuid.UUID, _ models.Caller, limit int) ([]models.LocationSample, error) {
	s.limit = limit
	return nil, s.err
}

func newTestHandler(rides *stubRides, dispatch *stubDispatch, tracking *stubTracking) *Ride {
	return NewRide(rides, nil, dispatch, tracking, nil, logger.Nop())
}

func withCaller(r *http.Request, role types.UserRole) (*http.Request, uuid.UUID) {
	id := uuid.New()
	return r.WithContext(models.WithCaller(r.Context(), models.Caller{ID: id, Role: role})), id
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %v (%q)", err, rec.Body.String())
	}
	return out
}

const createBody = `{
	"pickup_address": "Dhanmondi 27", "pickup_latitude": 23.7379, "pickup_longitude": 90.3947,
	"destination_address": "New Market", "destination_latitude": 23.7272, "destination_longitude": 90.3896,
	"vehicle_type": "bike", "payment_method": "cash"
}`

func TestCreateRide_UsesCallerAsCustomer(t *testing.T) {
	rides := &stubRides{}
	h := newTestHandler(rides, &stubDispatch{}, &stubTracking{})

	req, customerID := withCaller(httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(createBody)), types.RolePassenger)
	rec := httptest.NewRecorder()
	h.CreateRide(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rides.created == nil || rides.created.CustomerID != customerID {
		t.Fatalf("ride must be created for the caller, got %+v", rides.created)
	}
	ride, ok := decodeBody(t, rec)["ride"].(map[string]any)
	if !ok || ride["otp"] != "4821" || ride["status"] != string(types.StatusRequested) {
		t.Fatalf("unexpected ride payload: %v", ride)
	}
}

func TestCreateRide_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"pickup_address":`, http.StatusBadRequest},
		{"unknown field", `{"foo": 1}`, http.StatusBadRequest},
		{"missing fields", `{"vehicle_type": "bike"}`, http.StatusUnprocessableEntity},
		{"bad vehicle", strings.Replace(createBody, `"bike"`, `"plane"`, 1), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubRides{}, &stubDispatch{}, &stubTracking{})
			req, _ := withCaller(httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(tt.body)), types.RolePassenger)
			rec := httptest.NewRecorder()
			h.CreateRide(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("want %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServiceErrors_MapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("RideRepo.Accept: %w", types.ErrRideUnavailable), http.StatusConflict, types.ErrRideUnavailable.Error()},
		{types.ErrRideNotFound, http.StatusNotFound, types.ErrRideNotFound.Error()},
		{fmt.Errorf("wrap: %w", types.ErrNotAuthorized), http.StatusForbidden, types.ErrNotAuthorized.Error()},
		{fmt.Errorf("pgx: connection refused: %w", types.ErrDatabaseFailed), http.StatusInternalServerError, "the server encountered a problem and could not process your request"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			h := newTestHandler(&stubRides{}, &stubDispatch{err: tt.err}, &stubTracking{})

			req, _ := withCaller(httptest.NewRequest(http.MethodPost, "/rides/x/accept", nil), types.RoleDriver)
			req.SetPathValue("ride_id", uuid.New().String())
			rec := httptest.NewRecorder()
			h.AcceptRide(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("want %d, got %d", tt.code, rec.Code)
			}
			if got := decodeBody(t, rec)["error"]; got != tt.msg {
				t.Fatalf("want error %q, got %v", tt.msg, got)
			}
		})
	}
}

func TestGetRide_InvalidID(t *testing.T) {
	h := newTestHandler(&stubRides{}, &stubDispatch{}, &stubTracking{})

	req := httptest.NewRequest(http.MethodGet, "/rides/nope", nil)
	req.SetPathValue("ride_id", "nope")
	rec := httptest.NewRecorder()
	h.GetRide(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestAdvanceStatus_RejectsUnknownTarget(t *testing.T) {
	h := newTestHandler(&stubRides{}, &stubDispatch{}, &stubTracking{})

	req, _ := withCaller(httptest.NewRequest(http.MethodPost, "/rides/x/status", strings.NewReader(`{"status":"matched"}`)), types.RoleDriver)
	req.SetPathValue("ride_id", uuid.New().String())
	rec := httptest.NewRecorder()
	h.AdvanceStatus(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListAvailable_Query(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		code   int
		radius float64
	}{
		{"ok", "latitude=23.7&longitude=90.4&vehicle_type=car&radius_km=3.5", http.StatusOK, 3.5},
		{"default radius", "latitude=23.7&longitude=90.4&vehicle_type=car", http.StatusOK, 0},
		{"missing latitude", "longitude=90.4&vehicle_type=car", http.StatusUnprocessableEntity, 0},
		{"bad number", "latitude=abc&longitude=90.4&vehicle_type=car", http.StatusUnprocessableEntity, 0},
		{"out of range", "latitude=91&longitude=90.4&vehicle_type=car", http.StatusUnprocessableEntity, 0},
		{"bad vehicle", "latitude=23.7&longitude=90.4&vehicle_type=boat", http.StatusUnprocessableEntity, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatch := &stubDispatch{}
			h := newTestHandler(&stubRides{}, dispatch, &stubTracking{})

			rec := httptest.NewRecorder()
			h.ListAvailable(rec, httptest.NewRequest(http.MethodGet, "/rides/available?"+tt.query, nil))

			if rec.Code != tt.code {
				t.Fatalf("want %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.code == http.StatusOK && dispatch.radius != tt.radius {
				t.Fatalf("want radius %v, got %v", tt.radius, dispatch.radius)
			}
		})
	}
}

func TestLocationHistory_Limit(t *testing.T) {
	tracking := &stubTracking{}
	h := newTestHandler(&stubRides{}, &stubDispatch{}, tracking)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/rides/x/location/history?limit=20", nil)
	req.SetPathValue("ride_id", id)
	rec := httptest.NewRecorder()
	h.LocationHistory(rec, req)
	if rec.Code != http.StatusOK || tracking.limit != 20 {
		t.Fatalf("want 200 with limit 20, got %d limit %d", rec.Code, tracking.limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/rides/x/location/history?limit=-1", nil)
	req.SetPathValue("ride_id", id)
	rec = httptest.NewRecorder()
	h.LocationHistory(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 for negative limit, got %d", rec.Code)
	}
}

func TestGetLocation_NoData(t *testing.T) {
	h := newTestHandler(&stubRides{}, &stubDispatch{}, &stubTracking{err: types.ErrNoLocationData})

	req := httptest.NewRequest(http.MethodGet, "/rides/x/location", nil)
	req.SetPathValue("ride_id", uuid.New().String())
	rec := httptest.NewRecorder()
	h.GetLocation(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

// acceptedRide returns a ride with an assigned driver behind the real ride and tracking services.
func acceptedRide() (*Ride, *models.Ride) {
	driver := uuid.New()
	ride := servicetest.NewRide(uuid.New())
	ride.DriverID = &driver
	ride.Status = types.StatusAccepted

	store := servicetest.NewRideStore(ride)
	rides := rideservice.NewRideService(store, nil, nil, logger.Nop())
	locations := servicetest.NewLocationStore()
	locations.Rides = store
	tracker := tracking.New(store, locations, nil, nil, servicetest.TxManager{}, logger.Nop())

	return NewRide(rides, nil, &stubDispatch{}, tracker, nil, logger.Nop()), ride
}

func asCaller(r *http.Request, id uuid.UUID, role types.UserRole) *http.Request {
	return r.WithContext(models.WithCaller(r.Context(), models.Caller{ID: id, Role: role}))
}

func TestGetRide_Visibility(t *testing.T) {
	h, ride := acceptedRide()

	tests := []struct {
		name    string
		id      uuid.UUID
		role    types.UserRole
		code    int
		seesOTP bool
	}{
		{"customer", ride.CustomerID, types.RolePassenger, http.StatusOK, true},
		{"assigned driver", *ride.DriverID, types.RoleDriver, http.StatusOK, true},
		{"admin", uuid.New(), types.RoleAdmin, http.StatusOK, false},
		{"other passenger", uuid.New(), types.RolePassenger, http.StatusForbidden, false},
		{"other driver", uuid.New(), types.RoleDriver, http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asCaller(httptest.NewRequest(http.MethodGet, "/rides/x", nil), tt.id, tt.role)
			req.SetPathValue("ride_id", ride.ID.String())
			rec := httptest.NewRecorder()
			h.GetRide(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("want %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tt.code != http.StatusOK {
				if _, leaked := body["ride"]; leaked {
					t.Fatalf("refused caller must not get the ride: %v", body)
				}
				return
			}
			payload, _ := body["ride"].(map[string]any)
			otp, present := payload["otp"]
			if tt.seesOTP && otp != "4821" {
				t.Fatalf("want otp 4821, got %v", otp)
			}
			if !tt.seesOTP && present {
				t.Fatalf("otp must be hidden from %s, got %v", tt.name, otp)
			}
		})
	}
}

func TestLocationReads_Visibility(t *testing.T) {
	h, ride := acceptedRide()

	tests := []struct {
		name string
		id   uuid.UUID
		role types.UserRole
		code int
	}{
		{"customer", ride.CustomerID, types.RolePassenger, http.StatusOK},
		{"assigned driver", *ride.DriverID, types.RoleDriver, http.StatusOK},
		{"other passenger", uuid.New(), types.RolePassenger, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asCaller(httptest.NewRequest(http.MethodGet, "/rides/x/location/history", nil), tt.id, tt.role)
			req.SetPathValue("ride_id", ride.ID.String())
			rec := httptest.NewRecorder()
			h.LocationHistory(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("history: want %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}

			// no samples yet, so allowed callers get 404 and refused ones 403
			want := http.StatusNotFound
			if tt.code == http.StatusForbidden {
				want = http.StatusForbidden
			}
			req = asCaller(httptest.NewRequest(http.MethodGet, "/rides/x/location", nil), tt.id, tt.role)
			req.SetPathValue("ride_id", ride.ID.String())
			rec = httptest.NewRecorder()
			h.GetLocation(rec, req)
			if rec.Code != want {
				t.Fatalf("latest: want %d, got %d: %s", want, rec.Code, rec.Body.String())
			}
		})
	}
}
