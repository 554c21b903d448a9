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

// ReportLocation godoc
// @Summary      Report driver location
// @Description  Appends a sample for an active ride and fans it out to subscribers.
// @Tags         Tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string               true  "Ride ID"
// @Param        request  body      dto.LocationRequest  true  "Sample"
// @Success      202      {object}  dto.LocationResponse
// @Failure      403      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/location [post]
func (h *Ride) ReportLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRecordLocation)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.LocationRequest
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

	sample, err := h.tracking.Record(ctx, req.ToModel(rideID, caller.ID, h.now()))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to record location", err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, envelope{"location": dto.NewLocationResponse(sample.ToDriverLocation())}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// GetLocation godoc
// @Summary      Latest driver location
// @Tags         Tracking
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  dto.LocationResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /rides/{ride_id}/location [get]
func (h *Ride) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGetLocation)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	loc, err := h.tracking.Latest(ctx, rideID, caller)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get location", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"location": dto.NewLocationResponse(*loc)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// LocationHistory godoc
// @Summary      Driver location history
// @Description  Newest first. limit defaults to 50 and is capped at 500.
// @Tags         Tracking
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string   true   "Ride ID"
// @Param        limit    query     integer  false  "Max samples"
// @Success      200      {array}   dto.LocationResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /rides/{ride_id}/location/history [get]
func (h *Ride) LocationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionLocationHistory)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v := validator.New()
		limit, err = strconv.Atoi(raw)
		v.Check(err == nil && limit > 0, "limit", "must be a positive integer")
		if !v.Valid() {
			failedValidationResponse(w, v.Errors)
			return
		}
	}

	samples, err := h.tracking.History(ctx, rideID, caller, limit)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get location history", err)
		return
	}

	history := make([]dto.LocationResponse, 0, len(samples))
	for _, s := range samples {
		history = append(history, dto.NewLocationResponse(s.ToDriverLocation()))
	}

	if err := writeJSON(w, http.StatusOK, envelope{"locations": history}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}
