package gateway

import (
	"strings"

	"premia/internal/models/db_models"
)

// statusTable normalizes the provider status vocabulary into our transaction
// statuses. Anything not listed maps to failed: better to fail a payment we
// cannot interpret than to grant entitlement on it.
var statusTable = map[string]db_models.TransactionStatus{
	"success":    db_models.TxnStatusCompleted,
	"completed":  db_models.TxnStatusCompleted,
	"failed":     db_models.TxnStatusFailed,
	"error":      db_models.TxnStatusFailed,
	"cancelled":  db_models.TxnStatusCancelled,
	"pending":    db_models.TxnStatusProcessing,
	"processing": db_models.TxnStatusProcessing,
}

func NormalizeStatus(s string) db_models.TransactionStatus {
	if mapped, ok := statusTable[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mapped
	}
	return db_models.TxnStatusFailed
}

// KnownStatuses lists every provider status the table understands.
func KnownStatuses() []string {
	out := make([]string, 0, len(statusTable))
	for s := range statusTable {
		out = append(out, s)
	}
	return out
}
