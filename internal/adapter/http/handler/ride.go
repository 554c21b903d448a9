package handler

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

// Ride serves every ride-service endpoint.
type Ride struct {
	rides    RideService
	fares    FareService
	dispatch DispatchService
	tracking TrackingService
	payments PaymentService

	now func() time.Time
	l   logger.Logger
}

func NewRide(rides RideService, fares FareService, dispatch DispatchService, tracking TrackingService, payments PaymentService, l logger.Logger) *Ride {
	return &Ride{
		rides:    rides,
		fares:    fares,
		dispatch: dispatch,
		tracking: tracking,
		payments: payments,
		now:      time.Now,
		l:        l,
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Description  Prices the trip, generates the pickup OTP and stores the ride as requested. The caller is the customer.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "Ride request"
// @Success      201      {object}  dto.CreateRideResponse
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCreateRide)
	caller := models.CallerFromContext(ctx)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data", "errors", v.Errors)
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.rides.Create(ctx, req.ToModel(caller.ID))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to create ride", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"ride": dto.NewCreateRideResponse(ride)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// GetRide godoc
// @Summary      Ride details
// @Description  Full read-only projection of a ride.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.RideResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGetRide)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride, err := h.rides.Get(ctx, rideID, caller)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get ride", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride, caller)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// AdvanceStatus godoc
// @Summary      Advance ride status
// @Description  The assigned driver moves the ride to picked_up (with OTP), in_progress or completed.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                    true  "Ride ID"
// @Param        request  body      dto.AdvanceStatusRequest  true  "Target status"
// @Success      200      {object}  dto.RideResponse
// @Failure      403      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/status [post]
func (h *Ride) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionAdvanceStatus)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.AdvanceStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.rides.Advance(ctx, rideID, caller.ID, types.RideStatus(req.Status), req.OTP)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to advance ride status", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride, caller)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// CancelRide godoc
// @Summary      Cancel a ride
// @Description  The customer, the assigned driver or an admin cancels a ride that has not been picked up.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true  "Ride ID"
// @Param        request  body      dto.CancelRideRequest  true  "Reason"
// @Success      200      {object}  dto.RideResponse
// @Failure      403      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCancelRide)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.CancelRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.rides.Cancel(ctx, rideID, caller, req.Reason)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to cancel ride", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride, caller)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}
