// Package money holds the single numeric-parsing rule used for every monetary
// figure in the desk: anything that is not a number counts as zero.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ToSafeNumber parses s as a decimal number. Empty, blank or non-numeric input
// yields zero, so a malformed cost can never poison a total.
func ToSafeNumber(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders d with two decimal places, the way amounts are shown and sent.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
