package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertDecimal checks that got equals the decimal literal want.
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.Truef(t, got.Equal(D(want)), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// AssertDecimalZero checks that got is zero.
func AssertDecimalZero(t *testing.T, got decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.Truef(t, got.IsZero(), "want 0, got %s %v", got.String(), msgAndArgs)
}
