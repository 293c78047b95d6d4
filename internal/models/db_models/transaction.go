package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusPending    TransactionStatus = "pending"
	TxnStatusProcessing TransactionStatus = "processing"
	TxnStatusCompleted  TransactionStatus = "completed"
	TxnStatusFailed     TransactionStatus = "failed"
	TxnStatusCancelled  TransactionStatus = "cancelled"
	TxnStatusRefunded   TransactionStatus = "refunded"
)

func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TxnStatusCompleted, TxnStatusCancelled, TxnStatusRefunded:
		return true
	}
	return false
}

type TransactionType string

const (
	TxnTypeSubscription TransactionType = "subscription"
	TxnTypeRenewal      TransactionType = "renewal"
	TxnTypeRefund       TransactionType = "refund"
	TxnTypeUpgrade      TransactionType = "upgrade"
)

// MaxTransactionRetries bounds failed -> pending retries per transaction.
const MaxTransactionRetries = 3

type Transaction struct {
	BaseModel
	Code string `gorm:"uniqueIndex"` // human-readable, used by gateway callbacks

	UserID         uuid.UUID `gorm:"index"`
	SubscriptionID uuid.UUID `gorm:"index"`
	PlanID         uuid.UUID `gorm:"index"`

	AmountMinor int64
	Currency    string            `gorm:"size:3"`
	Status      TransactionStatus `gorm:"index"`
	Type        TransactionType   `gorm:"index"`

	PaymentMethod string
	Description   string

	GatewayTxnID    *string        `gorm:"index"`
	GatewayResponse datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	ExpiresAt     int64 // unix seconds; fixed offset from creation
	PaidAt        *int64
	FailureReason *string
	RetryCount    int `gorm:"default:0"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID"`
	Plan         Plan          `gorm:"foreignKey:PlanID"`
}
