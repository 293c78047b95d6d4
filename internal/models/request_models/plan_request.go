package request_models

type UpsertPlanRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     *string  `json:"description,omitempty"`
	PriceMinor      int64    `json:"price_minor" binding:"required"`
	Currency        string   `json:"currency" binding:"required"`
	DurationDays    int      `json:"duration_days"`
	BillingType     string   `json:"billing_type" binding:"required"` // monthly | yearly | lifetime
	Features        []string `json:"features,omitempty"`
	SortOrder       int      `json:"sort_order"`
	IsRecommended   bool     `json:"is_recommended"`
	DiscountPercent int      `json:"discount_percent"`
}
