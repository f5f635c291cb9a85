package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatN2(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"5":          "5.00",
		"999.999":    "1,000.00",
		"1234.5":     "1,234.50",
		"1234567.89": "1,234,567.89",
		"100000":     "100,000.00",
		"-2500.1":    "-2,500.10",
	}
	for in, want := range cases {
		got := FormatN2(decimal.RequireFromString(in))
		if got != want {
			t.Errorf("FormatN2(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(decimal.RequireFromString("1500"), ""); got != "1,500.00 SAR" {
		t.Fatalf("FormatCurrency default = %q", got)
	}
	if got := FormatCurrency(decimal.RequireFromString("12.3"), "EUR"); got != "12.30 EUR" {
		t.Fatalf("FormatCurrency EUR = %q", got)
	}
}

func TestSumAmounts(t *testing.T) {
	got := SumAmounts(decimal.RequireFromString("0.10"), decimal.RequireFromString("0.20"))
	if !got.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("SumAmounts = %s", got)
	}
	if !SumAmounts().IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}
