package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// ValidationError represents a finding that blocks automatic payment
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationWarning represents a non-critical issue
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReviewResult is the outcome of the cross-field checks on one invoice.
type ReviewResult struct {
	Valid       bool                `json:"valid"`
	NeedsReview bool                `json:"needsReview"`
	Errors      []ValidationError   `json:"errors"`
	Warnings    []ValidationWarning `json:"warnings"`
}

// Messages flattens errors and warnings into display strings.
func (r *ReviewResult) Messages() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Code, e.Message))
	}
	for _, w := range r.Warnings {
		out = append(out, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return out
}

// Reviewer flags extractions a human should look at before payment.
type Reviewer struct {
	now           func() time.Time
	minConfidence float64 // source confidence below this needs review
	maxAge        time.Duration
	competing     float64 // candidate confidence that counts as a rival total
}

// NewReviewer creates a reviewer with default thresholds
func NewReviewer() *Reviewer {
	return &Reviewer{
		now:           time.Now,
		minConfidence: 60,
		maxAge:        365 * 24 * time.Hour,
		competing:     90,
	}
}

// WithClock pins the reviewer's notion of today.
func (v *Reviewer) WithClock(now func() time.Time) *Reviewer {
	v.now = now
	return v
}

// Review runs every check. verdict may be nil when reconciliation has not run.
func (v *Reviewer) Review(res *models.ExtractionResult, verdict *models.MatchVerdict) *ReviewResult {
	result := &ReviewResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}
	if res == nil {
		result.Errors = append(result.Errors, ValidationError{Field: "document", Code: "no_extraction", Message: "nothing was extracted"})
		result.NeedsReview = true
		return result
	}

	v.validateTotal(res, result)
	v.validateDate(res, result)
	v.validateStaff(res, result)
	v.validateSource(res, result)
	v.validateVerdict(verdict, result)

	// Set final status
	result.Valid = len(result.Errors) == 0
	result.NeedsReview = len(result.Errors) > 0 || len(result.Warnings) > 0
	return result
}

func (v *Reviewer) validateTotal(res *models.ExtractionResult, result *ReviewResult) {
	if res.TotalAmount == nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "totalAmount",
			Code:    "missing_total",
			Message: "no amount found on the invoice",
		})
		return
	}
	if !res.TotalAmount.IsPositive() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "totalAmount",
			Code:    "non_positive_total",
			Message: fmt.Sprintf("total %s is not positive", res.TotalAmount.StringFixed(2)),
		})
	}

	// two confident, different totals usually means a subtotal was read as the total
	if len(res.Amounts) >= 2 {
		a, b := res.Amounts[0], res.Amounts[1]
		if a.Confidence >= v.competing && b.Confidence >= v.competing && !a.Value.Amount.Equal(b.Value.Amount) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "totalAmount",
				Code:    "competing_totals",
				Message: fmt.Sprintf("both %s and %s look like totals", a.Value.Amount.StringFixed(2), b.Value.Amount.StringFixed(2)),
			})
		}
	}

	if res.AIUsed && res.FieldSource != models.FieldsFromHeuristic {
		if top, ok := res.TopAmount(); ok && !top.Sub(*res.TotalAmount).Abs().LessThan(decimal.NewFromFloat(0.01)) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "totalAmount",
				Code:    "ai_total_disagrees",
				Message: fmt.Sprintf("model read %s, text patterns ranked %s first", res.TotalAmount.StringFixed(2), top.StringFixed(2)),
			})
		}
	}
}

func (v *Reviewer) validateDate(res *models.ExtractionResult, result *ReviewResult) {
	if res.Date == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "date",
			Code:    "missing_date",
			Message: "no invoice date found",
		})
		return
	}
	d, err := time.Parse("2006-01-02", res.Date)
	if err != nil {
		return
	}
	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case d.After(today.AddDate(0, 0, 1)):
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "date",
			Code:    "future_date",
			Message: fmt.Sprintf("invoice dated %s is in the future", res.Date),
		})
	case today.Sub(d) > v.maxAge:
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "date",
			Code:    "stale_date",
			Message: fmt.Sprintf("invoice dated %s is more than a year old", res.Date),
		})
	}
}

func (v *Reviewer) validateStaff(res *models.ExtractionResult, result *ReviewResult) {
	if res.StaffName == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "staffName",
			Code:    "missing_staff",
			Message: "no staff name found",
		})
	}
}

func (v *Reviewer) validateSource(res *models.ExtractionResult, result *ReviewResult) {
	if res.Text == nil {
		return
	}
	if res.Text.Source == models.SourceLocalOCRDegraded {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "text",
			Code:    "degraded_ocr",
			Message: "vision fallback was unavailable, low-confidence OCR text was used",
		})
		return
	}
	if res.Text.SourceConfidence < v.minConfidence {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "text",
			Code:    "low_confidence",
			Message: fmt.Sprintf("text confidence %.0f is below %.0f", res.Text.SourceConfidence, v.minConfidence),
		})
	}
}

func (v *Reviewer) validateVerdict(verdict *models.MatchVerdict, result *ReviewResult) {
	if verdict == nil || verdict.Status == models.FullMatch {
		return
	}
	result.Warnings = append(result.Warnings, ValidationWarning{
		Field:   "verdict",
		Code:    string(verdict.Status),
		Message: verdict.Details,
	})
}
