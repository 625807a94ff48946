package extract_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
)

func TestExtractAmounts_RoundTrip(t *testing.T) {
	got := extract.ExtractAmounts("Total: $1,234.56")
	require.NotEmpty(t, got)
	first := got[0].Value.Amount
	assert.True(t, first.Equal(decimal.RequireFromString("1234.56")))

	assert.Equal(t, "$1234.56", extract.FormatAmount(first))

	again := extract.ExtractAmounts(extract.FormatAmount(first))
	require.NotEmpty(t, again)
	assert.True(t, again[0].Value.Amount.Equal(first))
}

func TestExtractAmounts_Confidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"labelled dollar", "Total: $1,234.56", 100},
		{"dollar only", "paid $80.00 today", 80},
		{"euro symbol", "€250", 75},
		{"currency code", "EUR 250", 75},
		{"bare decimal", "cash 45.50 ok", 55},
		{"large bare integer", "approx 1500 for the job", 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.ExtractAmounts(tt.text)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got[0].Confidence)
		})
	}
}

func TestExtractAmounts_OrderAndDedupe(t *testing.T) {
	got := extract.ExtractAmounts("Subtotal: $100.00\nTax: $8.00\nTotal: $108.00\n$108.00")

	require.Len(t, got, 3)
	assert.Equal(t, "108.00", got[0].Value.Amount.StringFixed(2))
	assert.Equal(t, "100.00", got[1].Value.Amount.StringFixed(2))
	assert.Equal(t, "8.00", got[2].Value.Amount.StringFixed(2))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
}

func TestExtractAmounts_IgnoresNonMoney(t *testing.T) {
	for _, text := range []string{
		"Invoice 2025 services",
		"Invoice No. 10023",
		"Call 555-123-4567",
		"Ref #48213",
		"Date 15/01/2025",
		"12 Elm Street, Austin TX 78701",
		"Springfield, IL 62704",
		"Call (512) 555-0199",
		"",
	} {
		assert.Empty(t, extract.ExtractAmounts(text), "text %q", text)
	}
}

func TestParseAmount(t *testing.T) {
	d, ok := extract.ParseAmount("$3,965.34")
	assert.True(t, ok)
	assert.Equal(t, "3965.34", d.StringFixed(2))

	_, ok = extract.ParseAmount("abc")
	assert.False(t, ok)
}
