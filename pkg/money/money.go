// Package money implements minor-unit currency arithmetic. Amounts are
// int64 minor units; rates are decimal percentages. Floating point is
// never used for money.
package money

import "github.com/shopspring/decimal"

// Commission computes base × rate / 100 with half-up rounding applied
// exactly once. A 5.00 rate on 150000 yields 7500.
func Commission(base int64, rate decimal.Decimal) int64 {
	amount := decimal.NewFromInt(base).
		Mul(rate).
		Div(decimal.NewFromInt(100))
	return amount.Round(0).IntPart()
}

// Margin returns sale minus base for one order line.
func Margin(sale, base int64) int64 {
	return sale - base
}

// FeeBasisPoints computes amount × bp / 10000 with half-up rounding,
// used for pluggable platform fees on batch net amounts.
func FeeBasisPoints(amount int64, bp int) int64 {
	if bp == 0 {
		return 0
	}
	fee := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(bp))).
		Div(decimal.NewFromInt(10000))
	return fee.Round(0).IntPart()
}
