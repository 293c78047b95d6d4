// Package gateway defines the payment gateway contract the lifecycle engine
// codes against. Production swaps the simulator for a real provider client
// plus a webhook receiver; both feed settlements through the same
// normalization table in status.go.
package gateway

import "context"

type InitiateRequest struct {
	TransactionCode string
	AmountMinor     int64
	Currency        string
	Method          string
	CustomerID      string
	Description     string
}

// Ack is the synchronous acknowledgement: the gateway has accepted the
// settlement request but not resolved it yet.
type Ack struct {
	GatewayTxnID string `json:"gateway_txn_id"`
	PaymentURL   string `json:"payment_url,omitempty"`
	QRPayload    string `json:"qr_payload,omitempty"`
}

// Settlement is the asynchronous outcome. Status carries the provider's own
// vocabulary, not ours.
type Settlement struct {
	TransactionCode string                 `json:"transaction_code"`
	GatewayTxnID    string                 `json:"gateway_txn_id"`
	Status          string                 `json:"status"`
	FailureReason   string                 `json:"failure_reason,omitempty"`
	RawPayload      map[string]interface{} `json:"data,omitempty"`
}

// SettleFunc receives settlements as the gateway resolves them.
type SettleFunc func(settlement Settlement)

type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*Ack, error)
}
