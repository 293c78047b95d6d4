package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// NewTransactionCode builds the human-readable code gateway callbacks key on,
// e.g. "TXN-1735689600-4821". Unix seconds plus a short random suffix keeps
// collisions unlikely; the unique index on transactions.code catches the rest.
func NewTransactionCode() string {
	return fmt.Sprintf("TXN-%d-%04d", time.Now().Unix(), rand.Intn(10000))
}

// IsTransactionCode is a cheap shape check used before hitting the DB.
func IsTransactionCode(code string) bool {
	return strings.HasPrefix(code, "TXN-") && len(code) >= 14
}
