package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

// FareEstimate godoc
// @Summary      Fare estimate for one vehicle type
// @Tags         Fares
// @Accept       json
// @Produce      json
// @Param        request  body      dto.FareEstimateRequest  true  "Trip"
// @Success      200      {object}  models.FareEstimate
// @Failure      422      {object}  map[string]string
// @Router       /fares/estimate [post]
func (h *Ride) FareEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionFareEstimate)

	req, ok := h.readFareRequest(w, r, true)
	if !ok {
		return
	}

	estimate, err := h.fares.FareEstimate(req.Pickup(), req.Destination(), req.Type(), req.Flags())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to estimate fare", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"estimate": estimate}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// AllFareEstimates godoc
// @Summary      Fare estimates for every vehicle type
// @Tags         Fares
// @Accept       json
// @Produce      json
// @Param        request  body      dto.FareEstimateRequest  true  "Trip"
// @Success      200      {array}   models.FareEstimate
// @Failure      422      {object}  map[string]string
// @Router       /fares/estimates [post]
func (h *Ride) AllFareEstimates(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionFareEstimate)

	req, ok := h.readFareRequest(w, r, false)
	if !ok {
		return
	}

	estimates, err := h.fares.AllVehicleEstimates(req.Pickup(), req.Destination(), req.Flags())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to estimate fares", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"estimates": estimates}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

func (h *Ride) readFareRequest(w http.ResponseWriter, r *http.Request, requireType bool) (*dto.FareEstimateRequest, bool) {
	var req dto.FareEstimateRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return nil, false
	}

	v := validator.New()
	req.Validate(v, requireType)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return nil, false
	}
	return &req, true
}
