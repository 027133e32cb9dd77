// Package core provides the budget data model and money handling utilities.
//
// Amounts are shopspring decimals so that percentage splits conserve the
// allocated sum exactly; Epsilon only absorbs rounding in user-facing checks.
package core

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// Epsilon is the tolerance under which an unmet payment remainder counts as paid.
	Epsilon = decimal.New(1, -2)

	hundred = decimal.NewFromInt(100)
)

// groupedAmount matches thousands grouped with commas, e.g. 1,000 or 12,345.67.
var groupedAmount = regexp.MustCompile(`^[1-9][0-9]{0,2}(,[0-9]{3})+(\.[0-9]*)?$`)

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// Commas are read as thousands separators when they group digits by three,
// and as a decimal separator when a single comma is followed by one or two
// digits. Any other comma is ambiguous and rejected. Rounding is half-up on
// the third decimal place.
//
// Examples:
//
//	ParseAmount("12.345")   -> 12.35, nil
//	ParseAmount("1,000")    -> 1000, nil
//	ParseAmount("12,5")     -> 12.50, nil
//	ParseAmount("0,125")    -> 0, ErrInvalidAmount
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return decimal.Zero, ErrInvalidAmount
	case groupedAmount.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		i := strings.IndexByte(s, ',')
		if strings.ContainsAny(s[i+1:], ",.") || len(s)-i-1 < 1 || len(s)-i-1 > 2 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = s[:i] + "." + s[i+1:]
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount for outcome messages, e.g. "$12.30".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Share returns the fraction of an amount corresponding to a percentage.
func Share(amount decimal.Decimal, percentage float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(percentage)).Div(hundred)
}

// Ratio returns part/whole as a percentage, or zero when whole is not positive.
func Ratio(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	f, _ := part.Div(whole).Mul(hundred).Float64()
	return f
}
