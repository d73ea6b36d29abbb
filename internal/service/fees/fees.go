// Package fees implements the tiered fee schedule applied to every
// outgoing transaction before the balance sufficiency check.
package fees

import "github.com/shopspring/decimal"

var (
	tierLow  = decimal.NewFromInt(5000)
	tierHigh = decimal.NewFromInt(20000)

	feeLow  = decimal.NewFromInt(100)
	feeMid  = decimal.NewFromInt(200)
	feeRate = decimal.New(1, -2) // 1% above the upper tier
)

// Calculate returns the fee for amount:
//
//	amount < 5000          -> 100
//	5000 <= amount <= 20000 -> 200
//	amount > 20000          -> amount * 1%
func Calculate(amount decimal.Decimal) decimal.Decimal {
	switch {
	case amount.LessThan(tierLow):
		return feeLow
	case amount.LessThanOrEqual(tierHigh):
		return feeMid
	default:
		return amount.Mul(feeRate).Round(2)
	}
}
