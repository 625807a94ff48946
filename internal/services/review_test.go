package services_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/services"
)

func fixedNow() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func amount(s string, conf float64) models.Candidate[models.AmountValue] {
	return models.Candidate[models.AmountValue]{
		Value:      models.AmountValue{Amount: decimal.RequireFromString(s), Original: s},
		Confidence: conf,
	}
}

func cleanResult() *models.ExtractionResult {
	total := decimal.RequireFromString("150.00")
	return &models.ExtractionResult{
		Amounts:     []models.Candidate[models.AmountValue]{amount("150.00", 100)},
		StaffName:   "Maria Lopez",
		TotalAmount: &total,
		Date:        "2026-02-20",
		FieldSource: models.FieldsFromHeuristic,
		Text:        &models.ExtractedText{Source: models.SourceLocalOCR, SourceConfidence: 88},
	}
}

func codes(r *services.ReviewResult) []string {
	var out []string
	for _, e := range r.Errors {
		out = append(out, e.Code)
	}
	for _, w := range r.Warnings {
		out = append(out, w.Code)
	}
	return out
}

func TestReviewer_Clean(t *testing.T) {
	r := services.NewReviewer().WithClock(fixedNow)
	name := "Maria Lopez"
	res := r.Review(cleanResult(), &models.MatchVerdict{Status: models.FullMatch, MatchedStaffName: &name})

	assert.True(t, res.Valid)
	assert.False(t, res.NeedsReview)
	assert.Empty(t, res.Messages())
}

func TestReviewer_Checks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ExtractionResult)
		verdict *models.MatchVerdict
		want    string
		valid   bool
	}{
		{"missing total", func(r *models.ExtractionResult) { r.TotalAmount = nil }, nil, "missing_total", false},
		{"future date", func(r *models.ExtractionResult) { r.Date = "2026-04-15" }, nil, "future_date", true},
		{"stale date", func(r *models.ExtractionResult) { r.Date = "2024-01-02" }, nil, "stale_date", true},
		{"missing date", func(r *models.ExtractionResult) { r.Date = "" }, nil, "missing_date", true},
		{"missing staff", func(r *models.ExtractionResult) { r.StaffName = "" }, nil, "missing_staff", true},
		{"competing totals", func(r *models.ExtractionResult) {
			r.Amounts = append(r.Amounts, amount("135.00", 95))
		}, nil, "competing_totals", true},
		{"degraded source", func(r *models.ExtractionResult) {
			r.Text = &models.ExtractedText{Source: models.SourceLocalOCRDegraded, SourceConfidence: 40}
		}, nil, "degraded_ocr", true},
		{"low confidence", func(r *models.ExtractionResult) { r.Text.SourceConfidence = 52 }, nil, "low_confidence", true},
		{"ai disagrees", func(r *models.ExtractionResult) {
			ai := decimal.RequireFromString("1500.00")
			r.TotalAmount = &ai
			r.AIUsed = true
			r.FieldSource = models.FieldsMixed
		}, nil, "ai_total_disagrees", true},
		{"partial verdict", func(*models.ExtractionResult) {}, &models.MatchVerdict{Status: models.PartialMatch, Details: "amount differs"}, "partial_match", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := cleanResult()
			tt.mutate(res)
			got := services.NewReviewer().WithClock(fixedNow).Review(res, tt.verdict)

			assert.Contains(t, codes(got), tt.want)
			assert.Equal(t, tt.valid, got.Valid)
			assert.True(t, got.NeedsReview)
		})
	}
}

func TestReviewer_NilResult(t *testing.T) {
	got := services.NewReviewer().Review(nil, nil)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "no_extraction", got.Errors[0].Code)
	assert.False(t, got.Valid)
	assert.True(t, got.NeedsReview)
}
