package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
)

func TestCorrect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"currency with S prefix", "Total: S1,2O0.5O", "Total: $1,200.50"},
		{"currency with dollar", "Amount $l5O.OO", "Amount $150.00"},
		{"label glued to currency", "Total:$1O0.OO", "Total:$100.00"},
		{"date shaped", "Date: 1O/O5/2O25", "Date: 10/05/2025"},
		{"iso date shaped", "2O25-O1-l5", "2025-01-15"},
		{"standalone number", "Qty 1O0 units", "Qty 100 units"},
		{"trailing punctuation kept", "paid 2,5O0.", "paid 2,500."},
		{"words untouched", "Hello Invoice Total Solo Oil", "Hello Invoice Total Solo Oil"},
		{"lone lookalikes untouched", "I l O | o", "I l O | o"},
		{"mostly letters untouched", "lO1 IOl", "lO1 IOl"},
		{"whitespace preserved", "a\t\tS1O\n\nb", "a\t\t$10\n\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract.Correct(tt.in))
		})
	}
}

func TestCorrect_Idempotent(t *testing.T) {
	inputs := []string{
		"Total: S1,2O0.5O",
		"Invoice #l2O dated 1O/O5/2O25 for S3OO",
		"Hello world, Invoice Total Oil",
		"SlO Sl0l lIl |1| 1O|O",
		"Staff: Mike Ross\nHours: 1O\nRate: $2O.OO",
	}
	for _, in := range inputs {
		once := extract.Correct(in)
		assert.Equal(t, once, extract.Correct(once), "input %q", in)
	}
}

func TestCorrect_PreservesWordsWithLookalikes(t *testing.T) {
	for _, word := range []string{"Hello", "Invoice", "Total", "Lollipop", "Illinois", "SOLD"} {
		assert.Equal(t, word, extract.Correct(word))
	}
}
