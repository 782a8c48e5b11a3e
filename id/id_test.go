package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/propshare/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TradeID", id.NewTradeID, "trade_"},
		{"RentReceiptID", id.NewRentReceiptID, "rent_"},
		{"DistributionID", id.NewDistributionID, "dist_"},
		{"PayoutID", id.NewPayoutID, "pay_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixTrade)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixTrade {
		t.Errorf("expected prefix %q, got %q", id.PrefixTrade, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TradeID", id.NewTradeID, id.ParseTradeID},
		{"RentReceiptID", id.NewRentReceiptID, id.ParseRentReceiptID},
		{"DistributionID", id.NewDistributionID, id.ParseDistributionID},
		{"PayoutID", id.NewPayoutID, id.ParsePayoutID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTradeID rejects rent_", id.NewRentReceiptID().String(), id.ParseTradeID},
		{"ParseRentReceiptID rejects dist_", id.NewDistributionID().String(), id.ParseRentReceiptID},
		{"ParseDistributionID rejects pay_", id.NewPayoutID().String(), id.ParseDistributionID},
		{"ParsePayoutID rejects trade_", id.NewTradeID().String(), id.ParsePayoutID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
	if _, err := id.Parse("not a typeid"); err == nil {
		t.Error("expected error for malformed string")
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID
	if !nilID.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID String() should be empty, got %q", nilID.String())
	}
	if nilID.Prefix() != "" {
		t.Errorf("nil ID Prefix() should be empty, got %q", nilID.Prefix())
	}
}

func TestTextMarshalRoundTrip(t *testing.T) {
	original := id.NewDistributionID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}
}

func TestScan(t *testing.T) {
	original := id.NewTradeID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatal(err)
	}
	if fromString.String() != original.String() {
		t.Errorf("scan string mismatch: %q != %q", fromString.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNil.IsNil() {
		t.Error("scanning nil should produce the nil ID")
	}

	var fromInt id.ID
	if err := fromInt.Scan(42); err == nil {
		t.Error("expected error scanning unsupported type")
	}
}
