package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

// UpdatePayment godoc
// @Summary      Payment callback
// @Description  Records the payment outcome. A completed payment settles the ride; a failed settlement is retried asynchronously and reported as pending_retry.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string              true  "Ride ID"
// @Param        request  body      dto.PaymentRequest  true  "Payment outcome"
// @Success      200      {object}  dto.PaymentResponse
// @Failure      409      {object}  map[string]string
// @Router       /rides/{ride_id}/payment [post]
func (h *Ride) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionUpdatePayment)
	caller := models.CallerFromContext(ctx)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.PaymentRequest
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

	update, err := h.payments.UpdatePaymentStatus(ctx, rideID, caller.ID, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to update payment status", err)
		return
	}

	resp := dto.PaymentResponse{
		Ride:       dto.NewRideResponse(update.Ride, caller),
		Settlement: update.Settlement.Status,
	}
	if err := writeJSON(w, http.StatusOK, envelope{"payment": resp}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}
