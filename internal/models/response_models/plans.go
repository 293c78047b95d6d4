package response_models

import (
	"github.com/google/uuid"

	"premia/internal/models/db_models"
)

type PlanResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	PriceMinor      int64     `json:"price_minor"`
	EffectivePrice  int64     `json:"effective_price_minor"`
	Currency        string    `json:"currency"`
	DurationDays    int       `json:"duration_days"` // -1 means lifetime
	BillingType     string    `json:"billing_type"`
	Features        []string  `json:"features,omitempty"`
	SortOrder       int       `json:"sort_order"`
	IsRecommended   bool      `json:"is_recommended"`
	DiscountPercent int       `json:"discount_percent"`
}

func NewPlanResponse(plan *db_models.Plan) PlanResponse {
	return PlanResponse{
		ID:              plan.ID,
		Name:            plan.Name,
		Description:     plan.Description,
		PriceMinor:      plan.PriceMinor,
		EffectivePrice:  plan.EffectivePriceMinor(),
		Currency:        plan.Currency,
		DurationDays:    plan.DurationDays,
		BillingType:     string(plan.BillingType),
		Features:        []string(plan.Features),
		SortOrder:       plan.SortOrder,
		IsRecommended:   plan.IsRecommended,
		DiscountPercent: plan.DiscountPercent,
	}
}
