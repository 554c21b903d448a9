package handler

import (
	"net/http"
	"strconv"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

// ListAvailable godoc
// @Summary      Requested rides near a driver
// @Description  Nearest first. Radius defaults to the configured value and is capped at the configured maximum.
// @Tags         Dispatch
// @Produce      json
// @Security     BearerAuth
// @Param        latitude      query     number  true   "Driver latitude"
// @Param        longitude     query     number  true   "Driver longitude"
// @Param        vehicle_type  query     string  true   "bike, cng or car"
// @Param        radius_km     query     number  false  "Search radius"
// @Success      200           {array}   dto.AvailableRideResponse
// @Failure      422           {object}  map[string]string
// @Router       /rides/available [get]
func (h *Ride) ListAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionListAvailable)
	q := r.URL.Query()

	v := validator.New()
	lat := queryFloat(v, q.Get("latitude"), "latitude", true)
	lng := queryFloat(v, q.Get("longitude"), "longitude", true)
	radius := queryFloat(v, q.Get("radius_km"), "radius_km", false)
	vt := types.VehicleType(q.Get("vehicle_type"))

	v.Check(validator.Between(lat, -90, 90), "latitude", "must be between -90 and 90")
	v.Check(validator.Between(lng, -180, 180), "longitude", "must be between -180 and 180")
	v.Check(radius >= 0, "radius_km", "must not be negative")
	v.Check(vt.Valid(), "vehicle_type", "must be one of bike, cng, car")
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	available, err := h.dispatch.FindAvailable(ctx, models.Coordinate{Latitude: lat, Longitude: lng}, vt, radius)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to list available rides", err)
		return
	}

	rides := make([]dto.AvailableRideResponse, 0, len(available))
	for _, a := range available {
		rides = append(rides, dto.NewAvailableRideResponse(a))
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// AcceptRide godoc
// @Summary      Accept a requested ride
// @Description  Exactly one driver wins a ride. Losers get 409 "this ride is no longer available".
// @Tags         Dispatch
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) AcceptRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionAcceptRide)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride, err := h.dispatch.Accept(ctx, rideID, caller.ID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to accept ride", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride, caller)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// queryFloat parses raw, recording a validation error when it is malformed or required and empty.
func queryFloat(v *validator.Validator, raw, key string, required bool) float64 {
	if raw == "" {
		v.Check(!required, key, "must be provided")
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	v.Check(err == nil, key, "must be a number")
	return f
}
