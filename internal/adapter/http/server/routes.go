package server

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ride-dispatch/docs"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	switch a.mode {
	case types.RideService:
		a.setupRideRoutes()
		a.setupSwaggerRoutes()
	case types.RealtimeService:
		a.setupRealtimeRoutes()
	case types.SettlementWorker:
		a.log.Debug(wrap.WithAction(context.Background(), "setup routes"), "settlement worker serves health and metrics only")
	}
}

// setupRideRoutes setups routes for ride service
func (a *API) setupRideRoutes() {
	ride, m := a.routes.Ride, a.m

	a.mux.HandleFunc("POST /fares/estimate", ride.FareEstimate)      // Fare for one vehicle type
	a.mux.HandleFunc("POST /fares/estimates", ride.AllFareEstimates) // Fares for every vehicle type

	a.mux.Handle("POST /rides", m.RequireRoles(ride.CreateRide, types.RolePassenger))         // Create a new ride request
	a.mux.Handle("GET /rides/available", m.RequireRoles(ride.ListAvailable, types.RoleDriver)) // Requested rides near a driver
	a.mux.Handle("GET /rides/{ride_id}", m.RequireRoles(ride.GetRide))                         // Ride details

	a.mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(ride.AcceptRide, types.RoleDriver))   // Driver takes the ride
	a.mux.Handle("POST /rides/{ride_id}/status", m.RequireRoles(ride.AdvanceStatus, types.RoleDriver)) // picked_up, in_progress, completed
	a.mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(ride.CancelRide,
		types.RolePassenger, types.RoleDriver, types.RoleAdmin)) // Cancel a ride

	a.mux.Handle("POST /rides/{ride_id}/location", m.RequireRoles(ride.ReportLocation, types.RoleDriver)) // Driver location sample
	a.mux.Handle("GET /rides/{ride_id}/location", m.RequireRoles(ride.GetLocation))                       // Latest location
	a.mux.Handle("GET /rides/{ride_id}/location/history", m.RequireRoles(ride.LocationHistory))           // Location history

	a.mux.Handle("POST /rides/{ride_id}/payment", m.RequireRoles(ride.UpdatePayment, types.RolePassenger)) // Payment callback
}

// setupRealtimeRoutes setups the ride channel upgrade.
func (a *API) setupRealtimeRoutes() {
	a.mux.HandleFunc("GET /ws/rides/{ride_id}", a.routes.Realtime.HandleRide)
}

// setupSwaggerRoutes serves the swagger UI of the ride API.
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName("ride")
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}
