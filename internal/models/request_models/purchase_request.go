package request_models

import "github.com/google/uuid"

type PurchaseRequest struct {
	PlanID        uuid.UUID `json:"plan_id" binding:"required"`
	PaymentMethod string    `json:"payment_method" binding:"required"`
	AutoRenew     bool      `json:"auto_renew"`
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason" binding:"required"`
}
