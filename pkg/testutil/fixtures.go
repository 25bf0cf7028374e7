package testutil

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fixed identifiers and dates for deterministic tests.
const (
	CustomerID  = "CUST-0001"
	CustomerTel = "254700000001"
	ProductID   = "PROD-BIASHARA"
	Approver    = "credit-manager-1"
)

// DisbursedAt is the disbursement instant used across loan fixtures.
var DisbursedAt = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Day returns midnight UTC on the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
