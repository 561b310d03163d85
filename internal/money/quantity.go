package money

import "github.com/shopspring/decimal"

// QuantityScale is the number of Quantity units in one whole unit.
const QuantityScale = 1000

// Quantity is a non-negative fractional quantity stored as thousandths.
type Quantity int64

var thousand = decimal.NewFromInt(QuantityScale)

// One is a quantity of exactly one unit.
const One Quantity = QuantityScale

// QuantityFromDecimal converts a decimal quantity to thousandths, rounding half away from zero.
func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Mul(thousand).Round(0).IntPart())
}

// QuantityFromFloat converts a float quantity to thousandths.
func QuantityFromFloat(f float64) Quantity {
	return QuantityFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the quantity as a decimal number of units.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -3)
}

func (q Quantity) String() string {
	return q.Decimal().String()
}

// Gross returns round(q * unit / 1000) without any discount.
func Gross(q Quantity, unit Cents) Cents {
	return Cents(roundDiv(int64(q)*int64(unit), QuantityScale))
}

// LineTotal returns round(q * unit / 1000) - discount.
func LineTotal(q Quantity, unit, discount Cents) Cents {
	return Gross(q, unit) - discount
}
