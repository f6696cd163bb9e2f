// Package types provides common value types used across the tank ledger.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit is the measurement unit a tank is metered in.
type Unit string

const (
	// UnitLitre is the volume unit for liquid fuels (diesel, petrol).
	UnitLitre Unit = "litre"
	// UnitKilogram is the mass unit for compressed gas (CNG).
	UnitKilogram Unit = "kg"
)

// Valid reports whether the unit is one of the supported units.
func (u Unit) Valid() bool {
	return u == UnitLitre || u == UnitKilogram
}

// Symbol returns the display suffix for the unit.
func (u Unit) Symbol() string {
	switch u {
	case UnitLitre:
		return "L"
	case UnitKilogram:
		return "kg"
	default:
		return string(u)
	}
}

// Quantity represents an amount of fuel in a specific unit.
// All arithmetic is exact decimal; no floating point is involved.
//
// Examples:
//   - Litres(decimal.NewFromInt(500)) = 500 L
//   - Kilograms(decimal.NewFromFloat(12.5)) = 12.5 kg
type Quantity struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   Unit            `json:"unit"`
}

// Litres creates a Quantity measured in litres.
func Litres(amount decimal.Decimal) Quantity { return Quantity{Amount: amount, Unit: UnitLitre} }

// LitresFromInt creates a whole-litre Quantity.
func LitresFromInt(n int64) Quantity { return Litres(decimal.NewFromInt(n)) }

// Kilograms creates a Quantity measured in kilograms.
func Kilograms(amount decimal.Decimal) Quantity {
	return Quantity{Amount: amount, Unit: UnitKilogram}
}

// ZeroQuantity returns a zero Quantity in the given unit.
func ZeroQuantity(unit Unit) Quantity { return Quantity{Amount: decimal.Zero, Unit: unit} }

// Arithmetic operations

// Add adds two quantities. Panics if units don't match.
func (q Quantity) Add(other Quantity) Quantity {
	q.assertSameUnit(other)
	return Quantity{Amount: q.Amount.Add(other.Amount), Unit: q.Unit}
}

// Sub subtracts another quantity. Panics if units don't match.
func (q Quantity) Sub(other Quantity) Quantity {
	q.assertSameUnit(other)
	return Quantity{Amount: q.Amount.Sub(other.Amount), Unit: q.Unit}
}

// Neg returns the negated quantity.
func (q Quantity) Neg() Quantity {
	return Quantity{Amount: q.Amount.Neg(), Unit: q.Unit}
}

// Abs returns the absolute value.
func (q Quantity) Abs() Quantity {
	return Quantity{Amount: q.Amount.Abs(), Unit: q.Unit}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (q Quantity) IsZero() bool { return q.Amount.IsZero() }

// IsPositive returns true if the amount is greater than zero.
func (q Quantity) IsPositive() bool { return q.Amount.IsPositive() }

// IsNegative returns true if the amount is less than zero.
func (q Quantity) IsNegative() bool { return q.Amount.IsNegative() }

// Equal returns true if both quantities are equal (same amount and unit).
func (q Quantity) Equal(other Quantity) bool {
	return q.Unit == other.Unit && q.Amount.Equal(other.Amount)
}

// LessThan returns true if this quantity is less than other. Panics if units don't match.
func (q Quantity) LessThan(other Quantity) bool {
	q.assertSameUnit(other)
	return q.Amount.LessThan(other.Amount)
}

// GreaterThan returns true if this quantity is greater than other. Panics if units don't match.
func (q Quantity) GreaterThan(other Quantity) bool {
	q.assertSameUnit(other)
	return q.Amount.GreaterThan(other.Amount)
}

// Div divides the quantity by a divisor and returns the bare ratio.
// Panics on division by zero.
func (q Quantity) Div(divisor decimal.Decimal) decimal.Decimal {
	if divisor.IsZero() {
		panic("quantity: division by zero")
	}
	return q.Amount.Div(divisor)
}

// String returns a human-readable string with the unit symbol, e.g. "500 L".
func (q Quantity) String() string {
	return q.Amount.String() + " " + q.Unit.Symbol()
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount  decimal.Decimal `json:"amount"`
		Unit    Unit            `json:"unit"`
		Display string          `json:"display"`
	}{
		Amount:  q.Amount,
		Unit:    q.Unit,
		Display: q.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both the full object
// form written by MarshalJSON and a bare {"amount":...,"unit":...} pair.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount decimal.Decimal `json:"amount"`
		Unit   Unit            `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Amount = raw.Amount
	q.Unit = raw.Unit
	return nil
}

// SumQuantities calculates the sum of multiple quantities. All must share a unit.
func SumQuantities(unit Unit, values ...Quantity) Quantity {
	result := ZeroQuantity(unit)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// assertSameUnit panics if units don't match.
func (q Quantity) assertSameUnit(other Quantity) {
	if q.Unit != other.Unit {
		panic(fmt.Sprintf("quantity: unit mismatch: %s != %s", q.Unit, other.Unit))
	}
}
