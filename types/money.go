package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the smallest currency unit.
// Purchase costs on ledger transactions use it for unit_cost and total_cost.
// It carries no invariant against the transaction quantity: a caller may
// record a total that differs from volume times rate.
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, paise, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "inr", "eur"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// INR creates a Money value in Indian Rupees (paise).
func INR(paise int64) Money { return Money{Amount: paise, Currency: "inr"} }

// ZeroMoney returns a zero Money value in the specified currency.
func ZeroMoney(currency string) Money {
	return Money{Amount: 0, Currency: strings.ToLower(currency)}
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// MultiplyQuantity multiplies a per-unit cost by a fuel quantity, rounding
// to the nearest smallest currency unit. Used to derive a purchase total
// when the caller supplies only a rate.
func (m Money) MultiplyQuantity(q Quantity) Money {
	total := decimal.NewFromInt(m.Amount).Mul(q.Amount).Round(0)
	return Money{Amount: total.IntPart(), Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// FormatMajor returns the major unit string without a currency symbol,
// e.g. "49.00" for USD(4900).
func (m Money) FormatMajor() string {
	isNegative := m.Amount < 0
	abs := m.Amount
	if isNegative {
		abs = -abs
	}

	result := fmt.Sprintf("%d.%02d", abs/100, abs%100)
	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string, e.g. "usd 49.00".
func (m Money) String() string {
	return m.Currency + " " + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = raw.Currency
	return nil
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}
