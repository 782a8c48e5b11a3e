package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"JPY", JPY(100), 100, "jpy", "¥100"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
		{"Zero EUR", Zero("EUR"), 0, "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Multiply", func() Money { return USD(100).Multiply(3) }, USD(300)},
		{"Divide", func() Money { return USD(900).Divide(3) }, USD(300)},
		{"Divide floors", func() Money { return USD(1000).Divide(3) }, USD(333)},
		{"Negate", func() Money { return USD(100).Negate() }, USD(-100)},
		{"Complex", func() Money {
			return USD(1000).Add(USD(500)).Multiply(2).Subtract(USD(1000))
		}, USD(2000)},
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

func TestMoneyCheckedArithmetic(t *testing.T) {
	t.Run("MultiplyChecked ok", func(t *testing.T) {
		got, err := USD(1000).MultiplyChecked(20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(USD(20000)) {
			t.Errorf("Got %v, want %v", got, USD(20000))
		}
	})

	t.Run("MultiplyChecked zero qty", func(t *testing.T) {
		got, err := USD(1000).MultiplyChecked(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(USD(0)) {
			t.Errorf("Got %v, want %v", got, USD(0))
		}
	})

	t.Run("MultiplyChecked overflow", func(t *testing.T) {
		if _, err := USD(math.MaxInt64 / 2).MultiplyChecked(3); err == nil {
			t.Error("Expected overflow error")
		}
	})

	t.Run("AddChecked ok", func(t *testing.T) {
		got, err := USD(100).AddChecked(USD(200))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(USD(300)) {
			t.Errorf("Got %v, want %v", got, USD(300))
		}
	})

	t.Run("AddChecked overflow", func(t *testing.T) {
		if _, err := USD(math.MaxInt64).AddChecked(USD(1)); err == nil {
			t.Error("Expected overflow error")
		}
	})
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD(100).Add(EUR(100))
}

func TestMoneyDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	// This should panic
	_ = USD(100).Divide(0)
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USD(100), USD(100), false, false, true},
		{"Less", USD(50), USD(100), true, false, false},
		{"Greater", USD(200), USD(100), false, true, false},
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

func TestMoneyPredicates(t *testing.T) {
	if !USD(0).IsZero() || USD(1).IsZero() {
		t.Error("IsZero wrong")
	}
	if !USD(1).IsPositive() || USD(-1).IsPositive() || USD(0).IsPositive() {
		t.Error("IsPositive wrong")
	}
	if !USD(-1).IsNegative() || USD(1).IsNegative() {
		t.Error("IsNegative wrong")
	}
	if !USD(1).SameCurrency(USD(2)) || USD(1).SameCurrency(EUR(1)) {
		t.Error("SameCurrency wrong")
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	in := GBP(12345)

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out Money
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("Got %v, want %v", out, in)
	}
}

func TestSum(t *testing.T) {
	got := Sum(USD(100), USD(200), USD(300))
	if !got.Equal(USD(600)) {
		t.Errorf("Got %v, want %v", got, USD(600))
	}
}
