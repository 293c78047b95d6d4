package db_models

import (
	"github.com/lib/pq"
)

type BillingType string

const (
	BillingMonthly  BillingType = "monthly"
	BillingYearly   BillingType = "yearly"
	BillingLifetime BillingType = "lifetime"
)

// DurationLifetime is the sentinel stored in DurationDays for lifetime plans.
const DurationLifetime = -1

type Plan struct {
	BaseModel
	Name            string
	Description     *string
	PriceMinor      int64          // 99000 = 99,000 VND
	Currency        string         `gorm:"size:3"` // ISO 4217
	DurationDays    int            // -1 for lifetime
	BillingType     BillingType    `gorm:"index"`
	Features        pq.StringArray `gorm:"type:text[]"` // ordered feature labels
	IsActive        bool           `gorm:"default:true;index"`
	SortOrder       int            `gorm:"default:0"`
	IsRecommended   bool           `gorm:"default:false"`
	DiscountPercent int            `gorm:"default:0"` // 0-100
}

// EffectivePriceMinor is the amount actually charged at purchase time.
func (p *Plan) EffectivePriceMinor() int64 {
	if p.DiscountPercent <= 0 {
		return p.PriceMinor
	}
	return p.PriceMinor * int64(100-p.DiscountPercent) / 100
}

func (p *Plan) IsLifetime() bool {
	return p.BillingType == BillingLifetime || p.DurationDays == DurationLifetime
}
