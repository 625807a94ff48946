package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func TestDateExtractor_Formats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso", "Invoice date: 2025-01-15", "2025-01-15"},
		{"iso slashes", "2025/01/15", "2025-01-15"},
		{"european first over 12", "Date 13/05/2025", "2025-05-13"},
		{"us second over 12", "Date 05/13/2025", "2025-05-13"},
		{"ambiguous reads day first", "Date 05/06/2025", "2025-06-05"},
		{"dotted european", "15.01.2025", "2025-01-15"},
		{"two digit year", "on 15/01/25", "2025-01-15"},
		{"day month only", "paid 5/3 cash", "2026-03-05"},
		{"written day month", "15 March 2025", "2025-03-15"},
		{"written month day", "Jan 7th, 2025", "2025-01-07"},
		{"written full month", "September 30, 2024", "2024-09-30"},
	}
	ex := extract.NewDateExtractor().WithClock(fixedClock())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.text)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got[0].Value.ISODate)
		})
	}
}

func TestDateExtractor_RejectsInvalid(t *testing.T) {
	ex := extract.NewDateExtractor().WithClock(fixedClock())
	for _, text := range []string{"31/02/2025", "2025-13-01", "00/10/2025", "12/12/1850", "no dates here"} {
		assert.Empty(t, ex.Extract(text), "text %q", text)
	}
}

func TestDateExtractor_Confidence(t *testing.T) {
	ex := extract.NewDateExtractor().WithClock(fixedClock())

	got := ex.Extract("2025-01-15")
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Confidence)

	got = ex.Extract("1999-01-15")
	require.Len(t, got, 1)
	assert.Equal(t, 90.0, got[0].Confidence)

	got = ex.Extract("paid 5/3")
	require.Len(t, got, 1)
	assert.Equal(t, 85.0, got[0].Confidence)
}

func TestDateExtractor_DedupesAndRanks(t *testing.T) {
	ex := extract.NewDateExtractor().WithClock(fixedClock())
	got := ex.Extract("Issued 2025-01-15 (15/01/2025), due 2/3")

	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-15", got[0].Value.ISODate)
	assert.Equal(t, "2026-03-02", got[1].Value.ISODate)
	assert.GreaterOrEqual(t, got[0].Confidence, got[1].Confidence)
}

func TestParseDate(t *testing.T) {
	iso, ok := extract.ParseDate("05/13/2025")
	assert.True(t, ok)
	assert.Equal(t, "2025-05-13", iso)

	_, ok = extract.ParseDate("not a date")
	assert.False(t, ok)
}
