package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const stellarPrecision = 7

// stroopsPerLumen is the number of stroops in one XLM.
var stroopsPerLumen = decimal.NewFromInt(10_000_000)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// StroopsToLumens converts a stroop amount (the unit Horizon reports fees in)
// to its XLM display representation. Returns "0" for invalid input.
func StroopsToLumens(stroops string) string {
	d := SafeParse(stroops)
	return FormatAmount(d.Div(stroopsPerLumen))
}

// FormatAmount rounds to 7 decimal places and strips trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(stellarPrecision).StringFixed(stellarPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
