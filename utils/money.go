package utils

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the minor unit every amount is rounded to.
const MoneyPlaces = 2

var decimalOneHundred = decimal.NewFromInt(100)

// RoundMoney rounds half-up to the currency minor unit. Amounts in this codebase
// are non-negative, where shopspring's half-away-from-zero equals half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// CalculateTaxAmount applies a percentage rate to a tax-exclusive amount:
// (amount * rate) / 100, rounded to the minor unit.
func CalculateTaxAmount(amount decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(ratePercent).Div(decimalOneHundred))
}

// SumMoney adds amounts without intermediate rounding.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
