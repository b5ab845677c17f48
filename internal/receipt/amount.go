package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxAmount is the upper bound for a single expense amount.
var MaxAmount = decimal.RequireFromString("999999.99")

// ParseAmount parses a wire amount string and enforces the expense amount
// rules: positive, at most two fractional digits, at most 999,999.99.
// Amounts cross the wire as decimal strings to avoid floating-point
// currency drift.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks an already-parsed amount against the expense rules.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", d.String())
	}
	if d.Exponent() < -2 {
		return fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	if d.GreaterThan(MaxAmount) {
		return fmt.Errorf("amount %s exceeds maximum %s", d.String(), MaxAmount.String())
	}
	return nil
}
