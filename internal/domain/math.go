package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// RatePrecision is the number of fraction digits shown for rates and costs.
	RatePrecision = 4
	// MoneyPrecision is the number of fraction digits shown for P&L figures.
	MoneyPrecision = 2
)

// SafeDecimal converts a float to a decimal, returning zero for NaN and infinities.
func SafeDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// RoundTo rounds v half away from zero to the given number of fraction digits.
func RoundTo(v float64, places int32) float64 {
	f, _ := SafeDecimal(v).Round(places).Float64()
	return f
}

// FormatFixed renders v with exactly the given number of fraction digits.
// Negative zero is rendered without its sign.
func FormatFixed(v float64, places int32) string {
	return SafeDecimal(v).StringFixed(places)
}

// FormatRate renders a rate or cost basis for display.
func FormatRate(v float64) string { return FormatFixed(v, RatePrecision) }

// FormatMoney renders a P&L figure for display.
func FormatMoney(v float64) string { return FormatFixed(v, MoneyPrecision) }
