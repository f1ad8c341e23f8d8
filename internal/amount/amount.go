// Package amount parses monetary amounts from Stripe CSV exports.
package amount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a Stripe export amount to a decimal with 2 decimal places.
//
// Accepted formats: "xxx,xx" or "xxx.xx". Values with more than two decimal
// places are rounded half away from zero. Negative amounts are rejected.
func Parse(raw string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(raw, ",", ".")

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", raw)
	}
	return d.Round(2), nil
}
