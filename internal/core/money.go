// Package core provides the reporting domain types and money helpers.
//
// Amounts are shopspring decimals. Everything that leaves the service
// (JSON, spreadsheets, documents) is rounded to two fractional digits.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is appended to formatted amounts in exported documents.
const DefaultCurrency = "SAR"

// RoundMoney rounds half away from zero to two fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SumAmounts adds the given amounts.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}

// FormatN2 formats d with two decimals and comma thousands separators,
// e.g. 1234567.5 -> "1,234,567.50".
func FormatN2(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}

	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatCurrency renders an amount the way report documents show it: "1,234.50 SAR".
func FormatCurrency(d decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return FormatN2(d) + " " + currency
}
