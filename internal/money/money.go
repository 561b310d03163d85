// Package money holds the integer-cents value type used for every stored or compared
// monetary amount. Decimal forms only appear at input/output boundaries.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is an amount in minor currency units.
type Cents int64

var (
	hundred = decimal.NewFromInt(100)
	brl     = message.NewPrinter(language.BrazilianPortuguese)
)

// DecimalToCents converts a decimal currency amount to cents, rounding half away from zero.
func DecimalToCents(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// FloatToCents converts a float currency amount to cents. The float is read through its
// shortest decimal representation so 1.005 becomes 101 and not 100.
func FloatToCents(f float64) Cents {
	return DecimalToCents(decimal.NewFromFloat(f))
}

// CentsToDecimal converts cents back to a decimal currency amount.
func CentsToDecimal(c Cents) decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Sum adds amounts. Overflow is not handled.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}

// Multiply returns round(c * factor).
func Multiply(c Cents, factor decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(factor).Round(0).IntPart())
}

// CalculateDiscount returns round(c * percent / 100).
func CalculateDiscount(c Cents, percent decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(percent).Div(hundred).Round(0).IntPart())
}

// ApplyDiscount returns c minus CalculateDiscount(c, percent).
func ApplyDiscount(c Cents, percent decimal.Decimal) Cents {
	return c - CalculateDiscount(c, percent)
}

// Decimal returns the amount as a decimal currency value.
func (c Cents) Decimal() decimal.Decimal {
	return CentsToDecimal(c)
}

// String renders the amount with two fixed decimals, e.g. "12.30".
func (c Cents) String() string {
	return CentsToDecimal(c).StringFixed(2)
}

// Format renders the amount for display in pt-BR, e.g. "R$ 1.234,56".
func Format(c Cents) string {
	return brl.Sprintf("R$ %.2f", CentsToDecimal(c).InexactFloat64())
}

// roundDiv divides n by d rounding half away from zero. d must be positive.
func roundDiv(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return (n - d/2) / d
}
