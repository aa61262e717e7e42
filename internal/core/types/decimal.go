// Package types provides the money and quantity primitives shared by the domain.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits used when presenting money.
const MoneyScale int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// AddMoney returns a + b without rounding.
func AddMoney(a, b Money) Money {
	return a.Add(b)
}

// MultiplyMoney returns unitPrice × quantity without rounding.
func MultiplyMoney(unitPrice Money, quantity Quantity) Money {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SumMoney adds all values exactly. An empty list sums to zero.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// RoundMoney rounds half away from zero to two places. Presentation only;
// arithmetic stays exact.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// FormatMoney renders m with exactly two fractional digits.
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyScale)
}

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
