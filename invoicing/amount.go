package invoicing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var errInvalidAmount = errors.New("invalid amount")

func init() {
	// amounts travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount reads a user-typed number such as "20,000", "MMK 1,234.50"
// or "-5". Empty or malformed input yields zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	for _, sym := range []string{"MMK", "mmk", "Ks", "ks", "$"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, errInvalidAmount
	}
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

// ParseQuantity reads a whole quantity; fractions are truncated and
// malformed input yields zero.
func ParseQuantity(s string) int {
	return int(ParseAmount(s).IntPart())
}

// Round2 rounds for presentation. Never use it before aggregation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
