package response_models

import (
	"github.com/google/uuid"

	"premia/internal/models/db_models"
	"premia/pkg/utils"
)

type SubscriptionResponse struct {
	ID                    uuid.UUID `json:"id"`
	PlanID                uuid.UUID `json:"plan_id"`
	Status                string    `json:"status"`
	StartsAt              int64     `json:"starts_at"`
	EndsAt                int64     `json:"ends_at"`
	EndsAtDisplay         string    `json:"ends_at_display,omitempty"`
	AutoRenew             bool      `json:"auto_renew"`
	NextPaymentAt         *int64    `json:"next_payment_at,omitempty"`
	PaidAmountMinor       int64     `json:"paid_amount_minor"`
	PaymentMethod         string    `json:"payment_method"`
	LastTransactionCode   *string   `json:"last_transaction_code,omitempty"`
	FailedPaymentAttempts int       `json:"failed_payment_attempts"`
	CancelReason          *string   `json:"cancel_reason,omitempty"`
}

func NewSubscriptionResponse(sub *db_models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                    sub.ID,
		PlanID:                sub.PlanID,
		Status:                string(sub.Status),
		StartsAt:              sub.StartsAt,
		EndsAt:                sub.EndsAt,
		EndsAtDisplay:         utils.FormatRFC3339VN(utils.FromUnixSecondsVN(sub.EndsAt)),
		AutoRenew:             sub.AutoRenew,
		NextPaymentAt:         sub.NextPaymentAt,
		PaidAmountMinor:       sub.PaidAmountMinor,
		PaymentMethod:         sub.PaymentMethod,
		LastTransactionCode:   sub.LastTransactionCode,
		FailedPaymentAttempts: sub.FailedPaymentAttempts,
		CancelReason:          sub.CancelReason,
	}
}

type TransactionResponse struct {
	Code          string  `json:"code"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	AmountMinor   int64   `json:"amount_minor"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	GatewayTxnID  *string `json:"gateway_txn_id,omitempty"`
	PaidAt        *int64  `json:"paid_at,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	RetryCount    int     `json:"retry_count"`
	ExpiresAt     int64   `json:"expires_at"`
}

func NewTransactionResponse(txn *db_models.Transaction) TransactionResponse {
	return TransactionResponse{
		Code:          txn.Code,
		Status:        string(txn.Status),
		Type:          string(txn.Type),
		AmountMinor:   txn.AmountMinor,
		Currency:      txn.Currency,
		PaymentMethod: txn.PaymentMethod,
		GatewayTxnID:  txn.GatewayTxnID,
		PaidAt:        txn.PaidAt,
		FailureReason: txn.FailureReason,
		RetryCount:    txn.RetryCount,
		ExpiresAt:     txn.ExpiresAt,
	}
}

type PurchaseResponse struct {
	Success      bool                 `json:"success"`
	Subscription SubscriptionResponse `json:"subscription"`
	Transaction  TransactionResponse  `json:"transaction"`
	PaymentURL   string               `json:"payment_url,omitempty"`
	QRPayload    string               `json:"qr_payload,omitempty"`
}
