// Package numeric provides decimal parsing and display formatting for ticket fields
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroTotal is the display value when inputs cannot produce a positive total
const ZeroTotal = "0.00"

// ParseDecimal parses a user-typed decimal string. Empty or malformed input
// returns ok=false; callers treat it the same as absent.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParsePositive parses a decimal string and additionally requires a value > 0
func ParsePositive(s string) (decimal.Decimal, bool) {
	d, ok := ParseDecimal(s)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// FormatTotal renders a notional total with exactly two decimal places.
// StringFixed rounds half away from zero; this is a display value, not a
// ledger value.
func FormatTotal(d decimal.Decimal) string {
	return d.StringFixed(2)
}
