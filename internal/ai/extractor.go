package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// Extractor reads invoice fields from corrected OCR text with a language model.
type Extractor struct {
	provider Provider
	log      logrus.FieldLogger
}

// NewExtractor creates a new AI extractor
func NewExtractor(provider Provider, log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{provider: provider, log: log}
}

// ExtractFields implements extract.FieldExtractor.
func (e *Extractor) ExtractFields(ctx context.Context, text string) (*models.AIFields, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	startTime := time.Now()

	response, err := e.provider.Complete(ctx, Request{Prompt: buildFieldsPrompt(text), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("AI extraction failed: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"provider":        e.provider.Name(),
		"response_length": len(response),
		"duration_ms":     time.Since(startTime).Milliseconds(),
	}).Debug("AI response received")

	fields, err := parseFieldsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return fields, nil
}

func buildFieldsPrompt(text string) string {
	return fmt.Sprintf(`You extract fields from a contractor invoice submitted by a cleaning or maintenance worker.

Return ONLY a JSON object (no markdown, no comments) with exactly these keys:
{
  "staffName": "full name of the person who did the work and is billing, or null",
  "totalAmount": number (the final amount to be paid, or null),
  "date": "invoice or work date as YYYY-MM-DD, or null",
  "propertyName": "property, building or address where the work was done, or null",
  "confidence": number 0-100 (how sure you are overall)
}

Rules:
1. NEVER invent data. Use null when a field is not clearly present.
2. staffName is the worker, not the client or the property owner.
3. totalAmount is the grand total, not a line item or subtotal.
4. Dates written like 05/06/2025 are day/month/year unless the second number is above 12.

Invoice text:
---
%s
---`, text)
}

// parseFieldsResponse is lenient with numbers: models return both 1234.5 and "1,234.50".
func parseFieldsResponse(response string) (*models.AIFields, error) {
	cleaned := stripCodeFences(response)
	if start := strings.IndexByte(cleaned, '{'); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndexByte(cleaned, '}'); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	if err := ValidateFieldsJSON([]byte(cleaned)); err != nil {
		return nil, err
	}

	var raw struct {
		StaffName    *string     `json:"staffName"`
		TotalAmount  interface{} `json:"totalAmount"`
		Date         *string     `json:"date"`
		PropertyName *string     `json:"propertyName"`
		Confidence   *float64    `json:"confidence"`
	}
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := &models.AIFields{
		StaffName:    nonEmpty(raw.StaffName),
		Date:         nonEmpty(raw.Date),
		PropertyName: nonEmpty(raw.PropertyName),
	}
	if amt, ok := parseDecimal(raw.TotalAmount); ok {
		fields.TotalAmount = &amt
	}
	if fields.Date != nil {
		if iso, ok := extract.ParseDate(*fields.Date); ok {
			fields.Date = &iso
		} else {
			fields.Date = nil
		}
	}
	if raw.Confidence != nil {
		fields.Confidence = *raw.Confidence
	} else {
		fields.Confidence = calculateConfidence(fields)
	}
	return fields, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

// parseDecimal handles flexible number parsing from interface{}
// Supports: numbers, strings, strings with commas (e.g., "3,965.34")
func parseDecimal(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(val), true
	case json.Number:
		d, err := decimal.NewFromString(string(val))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		return extract.ParseAmount(val)
	default:
		return decimal.Zero, false
	}
}

// calculateConfidence scores a response by how many fields were found, when
// the model did not report its own confidence.
func calculateConfidence(f *models.AIFields) float64 {
	var score float64
	if f.StaffName != nil {
		score += 30
	}
	if f.TotalAmount != nil && f.TotalAmount.IsPositive() {
		score += 40
	}
	if f.Date != nil {
		score += 15
	}
	if f.PropertyName != nil {
		score += 15
	}
	return score
}
