package models

import (
	"github.com/shopspring/decimal"
)

// RawDocument is an uploaded invoice as received. It is never mutated.
type RawDocument struct {
	Bytes         []byte `json:"-"`
	MIMEType      string `json:"mimeType"`
	Filename      string `json:"filename,omitempty"`
	IsHandwritten bool   `json:"isHandwritten"`
}

// TextSource records which path produced the raw text of a document.
type TextSource string

const (
	SourceLocalOCR         TextSource = "local_ocr"
	SourceVisionFallback   TextSource = "vision_fallback"
	SourceLocalOCRDegraded TextSource = "local_ocr_degraded"
	SourceDirectText       TextSource = "direct_text"
)

// ExtractedText is the text of a document before and after character correction.
type ExtractedText struct {
	Raw              string     `json:"raw"`
	Corrected        string     `json:"corrected"`
	SourceConfidence float64    `json:"sourceConfidence"` // 0-100
	Source           TextSource `json:"source"`
}

// Candidate is one possible value for a field together with the text it came from.
type Candidate[T any] struct {
	Value        T       `json:"value"`
	OriginalSpan string  `json:"originalSpan"`
	Confidence   float64 `json:"confidence"` // 0-100
}

// DateValue holds a parsed calendar date.
type DateValue struct {
	DateStr string `json:"dateStr"`
	ISODate string `json:"isoDate"` // YYYY-MM-DD
}

// AmountValue holds a parsed monetary amount.
type AmountValue struct {
	Amount   decimal.Decimal `json:"amount"`
	Original string          `json:"original"`
}

// NameType distinguishes people from places.
type NameType string

const (
	NameStaff    NameType = "staff"
	NameProperty NameType = "property"
	NameUnknown  NameType = "unknown"
)

// NameValue is a person or property name.
type NameValue struct {
	Name string   `json:"name"`
	Type NameType `json:"type"`
}

// FieldSource tells where the scalar fields of an ExtractionResult came from.
type FieldSource string

const (
	FieldsFromAI        FieldSource = "ai"
	FieldsFromHeuristic FieldSource = "heuristic"
	FieldsMixed         FieldSource = "mixed"
)

// ExtractionResult is the aggregated output of all field extractors for one document.
// Every candidate list is sorted by descending confidence.
type ExtractionResult struct {
	Dates     []Candidate[DateValue]   `json:"dates"`
	Amounts   []Candidate[AmountValue] `json:"amounts"`
	Names     []Candidate[NameValue]   `json:"names"`
	Emails    []Candidate[string]      `json:"emails"`
	Phones    []Candidate[string]      `json:"phones"`
	Addresses []Candidate[string]      `json:"addresses"`

	StaffName    string           `json:"staffName,omitempty"`
	TotalAmount  *decimal.Decimal `json:"totalAmount,omitempty"`
	Date         string           `json:"date,omitempty"` // ISO
	PropertyName string           `json:"propertyName,omitempty"`

	FieldSource FieldSource    `json:"fieldSource"`
	AIUsed      bool           `json:"aiUsed"`
	Warnings    []string       `json:"warnings,omitempty"` // review findings
	Text        *ExtractedText `json:"text,omitempty"`
}

// TopAmount returns the highest-ranked amount candidate, if any.
func (r *ExtractionResult) TopAmount() (decimal.Decimal, bool) {
	if r == nil || len(r.Amounts) == 0 {
		return decimal.Zero, false
	}
	return r.Amounts[0].Value.Amount, true
}

// AIFields are the scalar fields a language model read from the document.
// Nil means the model did not find the field.
type AIFields struct {
	StaffName    *string          `json:"staffName"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
	Date         *string          `json:"date"`
	PropertyName *string          `json:"propertyName"`
	Confidence   float64          `json:"confidence"`
}
