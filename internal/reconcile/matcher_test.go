package reconcile_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/reconcile"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func entry(name, total string) models.LedgerEntry {
	return models.LedgerEntry{StaffName: name, TotalAmount: decimal.RequireFromString(total)}
}

func TestMatcher_Scenarios(t *testing.T) {
	m := reconcile.NewMatcher(nil)

	tests := []struct {
		name        string
		result      *models.ExtractionResult
		ledger      []models.LedgerEntry
		wantStatus  models.MatchStatus
		wantStaff   string
		wantDetails string
	}{
		{
			name:       "exact name and amount",
			result:     &models.ExtractionResult{StaffName: "Mike Rodriguez", TotalAmount: amount("150.00")},
			ledger:     []models.LedgerEntry{entry("Mike Rodriguez", "150.00")},
			wantStatus: models.FullMatch,
			wantStaff:  "Mike Rodriguez",
		},
		{
			name:        "fuzzy name wrong amount",
			result:      &models.ExtractionResult{StaffName: "M. Rodrigez", TotalAmount: amount("200.00")},
			ledger:      []models.LedgerEntry{entry("Mike Rodriguez", "150.00")},
			wantStatus:  models.PartialMatch,
			wantStaff:   "Mike Rodriguez",
			wantDetails: "differs from expected 150.00",
		},
		{
			name:        "amount only",
			result:      &models.ExtractionResult{TotalAmount: amount("75.50")},
			ledger:      []models.LedgerEntry{entry("Emily Chen", "75.50")},
			wantStatus:  models.PartialMatch,
			wantStaff:   "Emily Chen",
			wantDetails: "amount matches Emily Chen but name unverified",
		},
		{
			name:       "nothing matches",
			result:     &models.ExtractionResult{StaffName: "Unknown Person", TotalAmount: amount("9999")},
			ledger:     []models.LedgerEntry{entry("Emily Chen", "75.50"), entry("Mike Rodriguez", "150.00")},
			wantStatus: models.NoMatch,
		},
		{
			name:        "empty ledger",
			result:      &models.ExtractionResult{StaffName: "Mike Rodriguez", TotalAmount: amount("150.00")},
			ledger:      nil,
			wantStatus:  models.NoMatch,
			wantDetails: "ledger is empty",
		},
		{
			name:        "nil extraction",
			result:      nil,
			ledger:      []models.LedgerEntry{entry("Emily Chen", "75.50")},
			wantStatus:  models.NoMatch,
			wantDetails: "no extraction result",
		},
		{
			name:       "containment with amount inside tolerance",
			result:     &models.ExtractionResult{StaffName: "Rodriguez", TotalAmount: amount("150.004")},
			ledger:     []models.LedgerEntry{entry("Emily Chen", "75.50"), entry("Mike Rodriguez", "150.00")},
			wantStatus: models.FullMatch,
			wantStaff:  "Mike Rodriguez",
		},
		{
			name:        "name matches but no amount extracted",
			result:      &models.ExtractionResult{StaffName: "Mike Rodriguez"},
			ledger:      []models.LedgerEntry{entry("Mike Rodriguez", "150.00")},
			wantStatus:  models.PartialMatch,
			wantStaff:   "Mike Rodriguez",
			wantDetails: "no amount found",
		},
		{
			name:       "weak name falls through to amount scan",
			result:     &models.ExtractionResult{StaffName: "Mike Jones", TotalAmount: amount("75.50")},
			ledger:     []models.LedgerEntry{entry("Mike Rodriguez", "150.00"), entry("Emily Chen", "75.50")},
			wantStatus: models.PartialMatch,
			wantStaff:  "Emily Chen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := m.Match(tt.result, tt.ledger)
			assert.Equal(t, tt.wantStatus, v.Status)
			if tt.wantStaff == "" {
				assert.Nil(t, v.MatchedStaffName)
			} else {
				require.NotNil(t, v.MatchedStaffName)
				assert.Equal(t, tt.wantStaff, *v.MatchedStaffName)
			}
			assert.NotEmpty(t, v.Details)
			if tt.wantDetails != "" {
				assert.Contains(t, v.Details, tt.wantDetails)
			}
		})
	}
}

func TestMatcher_ExactMatchShortCircuits(t *testing.T) {
	m := reconcile.NewMatcher(nil)
	ledger := []models.LedgerEntry{
		entry("Mike Rodriguez Jr", "150.00"),
		entry("Mike Rodriguez", "150.00"),
	}
	v := m.Match(&models.ExtractionResult{StaffName: "mike rodriguez", TotalAmount: amount("150")}, ledger)

	require.NotNil(t, v.MatchedStaffName)
	assert.Equal(t, "Mike Rodriguez", *v.MatchedStaffName)
	assert.Equal(t, 100.0, v.NameScore)
}
