package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuantityConstructors(t *testing.T) {
	tests := []struct {
		name    string
		qty     Quantity
		amount  string
		unit    Unit
		display string
	}{
		{"Litres", Litres(decimal.NewFromInt(500)), "500", UnitLitre, "500 L"},
		{"LitresFromInt", LitresFromInt(120), "120", UnitLitre, "120 L"},
		{"Kilograms", Kilograms(decimal.NewFromFloat(12.5)), "12.5", UnitKilogram, "12.5 kg"},
		{"Zero litres", ZeroQuantity(UnitLitre), "0", UnitLitre, "0 L"},
		{"Zero kg", ZeroQuantity(UnitKilogram), "0", UnitKilogram, "0 kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.qty.Amount.String(); got != tt.amount {
				t.Errorf("Amount: got %s, want %s", got, tt.amount)
			}
			if tt.qty.Unit != tt.unit {
				t.Errorf("Unit: got %s, want %s", tt.qty.Unit, tt.unit)
			}
			if got := tt.qty.String(); got != tt.display {
				t.Errorf("Display: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestQuantityArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Quantity
		expected Quantity
	}{
		{"Add", func() Quantity { return LitresFromInt(100).Add(LitresFromInt(200)) }, LitresFromInt(300)},
		{"Sub", func() Quantity { return LitresFromInt(500).Sub(LitresFromInt(200)) }, LitresFromInt(300)},
		{"Sub below zero", func() Quantity { return LitresFromInt(100).Sub(LitresFromInt(300)) }, LitresFromInt(-200)},
		{"Neg", func() Quantity { return LitresFromInt(100).Neg() }, LitresFromInt(-100)},
		{"Abs positive", func() Quantity { return LitresFromInt(100).Abs() }, LitresFromInt(100)},
		{"Abs negative", func() Quantity { return LitresFromInt(-100).Abs() }, LitresFromInt(100)},
		{"Fractional add", func() Quantity {
			return Litres(decimal.NewFromFloat(0.1)).Add(Litres(decimal.NewFromFloat(0.2)))
		}, Litres(decimal.NewFromFloat(0.3))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestQuantityUnitMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for unit mismatch")
		}
	}()

	// This should panic
	_ = LitresFromInt(100).Add(Kilograms(decimal.NewFromInt(100)))
}

func TestQuantityDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	// This should panic
	_ = LitresFromInt(100).Div(decimal.Zero)
}

func TestQuantityDiv(t *testing.T) {
	tests := []struct {
		name     string
		qty      Quantity
		divisor  decimal.Decimal
		expected string
	}{
		{"Whole", LitresFromInt(600), decimal.NewFromInt(30), "20"},
		{"Fractional", LitresFromInt(200), decimal.NewFromInt(80), "2.5"},
		{"Rate below one", LitresFromInt(10), decimal.NewFromInt(100), "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.qty.Div(tt.divisor)
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Div: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestQuantityComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Quantity
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", LitresFromInt(100), LitresFromInt(100), false, false, true},
		{"Less", LitresFromInt(50), LitresFromInt(100), true, false, false},
		{"Greater", LitresFromInt(200), LitresFromInt(100), false, true, false},
		{"Zero equal", LitresFromInt(0), ZeroQuantity(UnitLitre), false, false, true},
		{"Negative less", LitresFromInt(-100), LitresFromInt(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestQuantityEqualAcrossUnits(t *testing.T) {
	if LitresFromInt(100).Equal(Kilograms(decimal.NewFromInt(100))) {
		t.Error("quantities in different units must not compare equal")
	}
}

func TestQuantityPredicates(t *testing.T) {
	tests := []struct {
		name       string
		qty        Quantity
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", LitresFromInt(0), true, false, false},
		{"Positive", LitresFromInt(100), false, true, false},
		{"Negative", LitresFromInt(-100), false, false, true},
		{"Fractional", Litres(decimal.NewFromFloat(0.001)), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.qty.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.qty.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.qty.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestUnitValid(t *testing.T) {
	tests := []struct {
		unit  Unit
		valid bool
	}{
		{UnitLitre, true},
		{UnitKilogram, true},
		{Unit("gallon"), false},
		{Unit(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			if got := tt.unit.Valid(); got != tt.valid {
				t.Errorf("Valid: got %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestQuantityJSON(t *testing.T) {
	q := LitresFromInt(500)

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"amount":"500","unit":"litre","display":"500 L"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var restored Quantity
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !restored.Equal(q) {
		t.Errorf("Round-trip: got %v, want %v", restored, q)
	}
}

func TestSumQuantities(t *testing.T) {
	tests := []struct {
		name     string
		values   []Quantity
		expected Quantity
	}{
		{"Empty", []Quantity{}, ZeroQuantity(UnitLitre)},
		{"Single", []Quantity{LitresFromInt(100)}, LitresFromInt(100)},
		{"Multiple", []Quantity{LitresFromInt(100), LitresFromInt(200), LitresFromInt(300)}, LitresFromInt(600)},
		{"With negatives", []Quantity{LitresFromInt(100), LitresFromInt(-50), LitresFromInt(200)}, LitresFromInt(250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SumQuantities(UnitLitre, tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("SumQuantities: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func BenchmarkQuantityAdd(b *testing.B) {
	q1 := LitresFromInt(100)
	q2 := LitresFromInt(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = q1.Add(q2)
	}
}

func BenchmarkQuantityJSON(b *testing.B) {
	q := LitresFromInt(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(q)
	}
}
