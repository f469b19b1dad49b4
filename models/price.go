package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Prices persist as "$123.45" strings. These two functions are the only
// place the format is encoded or decoded; all arithmetic happens on
// decimals in between.

// ParsePrice decodes a $-prefixed fixed-point price string.
func ParsePrice(price string) (decimal.Decimal, error) {
	trimmed := strings.TrimPrefix(price, "$")
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed price %q: %w", price, err)
	}
	return value, nil
}

// FormatPrice encodes a decimal as a $-prefixed string with two decimals.
func FormatPrice(value decimal.Decimal) string {
	return "$" + value.StringFixed(2)
}

// TradingDate renders t the way the simulation keys historical data:
// month and day without zero padding, four-digit year.
func TradingDate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
