package dto

import (
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type PaymentRequest struct {
	PaymentMethod string  `json:"payment_method"`
	PaymentStatus string  `json:"payment_status"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

func (r *PaymentRequest) Validate(v *validator.Validator) {
	if r.PaymentMethod != "" {
		v.Check(types.PaymentMethod(r.PaymentMethod).Valid(), "payment_method", "must be one of cash, card, mobile_banking")
	}
	v.Check(r.PaymentStatus != "", "payment_status", "must be provided")
	if r.PaymentStatus != "" {
		v.Check(types.PaymentStatus(r.PaymentStatus).Valid(), "payment_status", "must be one of pending, completed, failed")
	}
	if r.TransactionID != nil {
		v.Check(strings.TrimSpace(*r.TransactionID) != "", "transaction_id", "must not be blank")
		v.Check(len(*r.TransactionID) <= 128, "transaction_id", "must not be more than 128 characters long")
	}
}

func (r *PaymentRequest) ToModel() models.PaymentChange {
	return models.PaymentChange{
		Method:        types.PaymentMethod(r.PaymentMethod),
		Status:        types.PaymentStatus(r.PaymentStatus),
		TransactionID: r.TransactionID,
	}
}

type PaymentResponse struct {
	Ride       RideResponse            `json:"ride"`
	Settlement models.SettlementStatus `json:"settlement"`
}
