package normalize

import (
	"errors"
	"testing"
)

func TestParsePrice_CommonFormats(t *testing.T) {
	cases := []struct {
		text     string
		amount   int64
		currency string
	}{
		{"US $12.99", 1299, "USD"},
		{"$1,299.00", 129900, "USD"},
		{"24.50 EUR", 2450, "EUR"},
		{"24,99 €", 2499, "EUR"},
		{"1.299,00 €", 129900, "EUR"},
		{"£9.99", 999, "GBP"},
		{"¥1500", 1500, "JPY"},
		{"₹499", 49900, "INR"},
		{"C$89.95", 8995, "CAD"},
		{"19.99", 1999, "USD"}, // no marker defaults to USD
		{"Price: $49", 4900, "USD"},
	}

	for _, tc := range cases {
		amount, currency, err := ParsePrice(tc.text)
		if err != nil {
			t.Errorf("ParsePrice(%q) returned error: %v", tc.text, err)
			continue
		}
		if amount != tc.amount || currency != tc.currency {
			t.Errorf("ParsePrice(%q) = (%d, %q), want (%d, %q)",
				tc.text, amount, currency, tc.amount, tc.currency)
		}
	}
}

func TestParsePrice_DotGroupingInCommaDecimalLocales(t *testing.T) {
	// A lone dot with a three-digit tail is thousands grouping when the
	// currency writes decimals with a comma.
	amount, currency, err := ParsePrice("1.299 €")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 129900 || currency != "EUR" {
		t.Errorf("got (%d, %q), want (129900, EUR)", amount, currency)
	}

	// A two-digit tail stays a decimal even in those locales.
	amount, _, err = ParsePrice("24.50 EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 2450 {
		t.Errorf("got %d, want 2450", amount)
	}

	// Dot-decimal currencies keep the three-digit tail as extra precision.
	amount, _, err = ParsePrice("$12.995")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 1300 {
		t.Errorf("got %d, want 1300", amount)
	}
}

func TestParsePrice_Range_TakesLowerBound(t *testing.T) {
	amount, currency, err := ParsePrice("$10.99 - $15.99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 1099 || currency != "USD" {
		t.Errorf("got (%d, %q), want (1099, USD)", amount, currency)
	}
}

func TestParsePrice_ThousandsGrouping(t *testing.T) {
	// A sole comma followed by exactly three digits is grouping, not decimals.
	amount, _, err := ParsePrice("$1,299")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 129900 {
		t.Errorf("got %d, want 129900", amount)
	}
}

func TestParsePrice_ZeroDecimalCurrency(t *testing.T) {
	// JPY has no minor unit; "¥1,500" is 1500, not 150000.
	amount, currency, err := ParsePrice("¥1,500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 1500 || currency != "JPY" {
		t.Errorf("got (%d, %q), want (1500, JPY)", amount, currency)
	}
}

func TestParsePrice_ExcessPrecisionRounds(t *testing.T) {
	amount, _, err := ParsePrice("$12.995")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 1300 {
		t.Errorf("got %d, want 1300 (half away from zero)", amount)
	}
}

func TestParsePrice_NoAmount(t *testing.T) {
	for _, text := range []string{"", "   ", "Contact us for pricing", "$"} {
		_, _, err := ParsePrice(text)
		if !errors.Is(err, ErrNoPrice) {
			t.Errorf("ParsePrice(%q) error = %v, want ErrNoPrice", text, err)
		}
	}
}

func TestParsePrice_Idempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		amount, currency, err := ParsePrice("US $12.99")
		if err != nil || amount != 1299 || currency != "USD" {
			t.Fatalf("run %d: got (%d, %q, %v)", i, amount, currency, err)
		}
	}
}
