package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
)

func TestExtractEmails(t *testing.T) {
	got := extract.ExtractEmails("Contact: Mike.Ross@Example.com or mike.ross@example.com.")
	require.Len(t, got, 1)
	assert.Equal(t, "mike.ross@example.com", got[0].Value)
	assert.Equal(t, 95.0, got[0].Confidence)
}

func TestExtractPhones(t *testing.T) {
	got := extract.ExtractPhones("Phone: (555) 123-4567 / cell +1 555.123.4567, office 555 987 6543")
	require.Len(t, got, 2)
	assert.Equal(t, "5551234567", got[0].Value)
	assert.Equal(t, "5559876543", got[1].Value)
	assert.Equal(t, 90.0, got[0].Confidence)
}

func TestExtractPhones_SkipsDatesAndAmounts(t *testing.T) {
	assert.Empty(t, extract.ExtractPhones("2025-01-15 total $1,234.56"))
}

func TestExtractAddresses(t *testing.T) {
	got := extract.ExtractAddresses("Service at 123 Main St, Springfield, IL 62704\nthanks")
	require.Len(t, got, 1)
	assert.Equal(t, "123 Main St, Springfield, IL 62704", got[0].Value)
	assert.Equal(t, 75.0, got[0].Confidence)
}

func TestExtractAddresses_DedupeIgnoresCase(t *testing.T) {
	got := extract.ExtractAddresses("123 Main St, Springfield\n123 Main St, SPRINGFIELD\n")
	require.Len(t, got, 1)
	assert.Equal(t, "123 Main St, Springfield", got[0].Value)
}
