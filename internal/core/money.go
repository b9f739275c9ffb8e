// Package core provides money rounding and formatting utilities.
//
// Amounts travel as float64 on the wire but every arithmetic step goes
// through decimal.Decimal so sums of many small amounts do not drift.
package core

import (
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "RM"

// ToCents converts a signed amount to integer cents with two-decimal rounding.
//
// Examples:
//
//	ToCents(12.34)  -> 1234
//	ToCents(-0.005) -> -1
func ToCents(v float64) int64 {
	return decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents back to an amount.
func FromCents(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// HasCentPrecision reports whether v needs no more than two decimals.
func HasCentPrecision(v float64) bool {
	return decimal.NewFromFloat(v).Exponent() >= -2
}

// FormatAmount formats an amount with two decimals and the sign after the
// symbol (e.g., "RM12.34", "RM-12.50").
func FormatAmount(v float64) string {
	return CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}

// FormatPercent formats a ratio as a whole percentage (0.65 -> "65%").
func FormatPercent(ratio float64) string {
	return decimal.NewFromFloat(ratio).Shift(2).StringFixed(0) + "%"
}
