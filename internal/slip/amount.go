package slip

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a money or points magnitude. Thousands separators and
// surrounding whitespace are UI formatting and are dropped; an empty string is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("parse amount %q: negative", s)
	}
	return d, nil
}

// ParseDays reads a whole, non-negative number of leave days. Empty means 0.
func ParseDays(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse days %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("parse days %q: negative", s)
	}
	return n, nil
}
