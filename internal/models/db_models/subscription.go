package db_models

import (
	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubStatusPending   SubscriptionStatus = "pending"
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusExpired   SubscriptionStatus = "expired"
	SubStatusCancelled SubscriptionStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave the status.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubStatusExpired || s == SubStatusCancelled
}

// MaxRenewalFailures is how many consecutive failed renewal charges are
// tolerated before auto-renewal is force-disabled.
const MaxRenewalFailures = 3

type Subscription struct {
	BaseModel
	UserID uuid.UUID `gorm:"index"`
	PlanID uuid.UUID `gorm:"index"` // fixed reference; never re-resolved on plan edits

	Status   SubscriptionStatus `gorm:"index"`
	StartsAt int64              `gorm:"not null"` // unix seconds
	EndsAt   int64              // 0 while pending; set on activation

	AutoRenew     bool   `gorm:"default:false"`
	NextPaymentAt *int64 // nil for lifetime and yearly-without-renewal

	PaidAmountMinor     int64
	PaymentMethod       string
	LastTransactionCode *string `gorm:"index"`

	FailedPaymentAttempts int `gorm:"default:0"`

	CancelledAt  *int64
	CancelReason *string

	Plan Plan `gorm:"foreignKey:PlanID"`
}
