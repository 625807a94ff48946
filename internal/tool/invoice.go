package tool

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/reconcile"
	"github.com/contractorpay/invoice-reconciler/internal/services"
)

// documentProperties are the input fields shared by every invoice tool.
func documentProperties() map[string]interface{} {
	return map[string]interface{}{
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Plain text of the invoice. Use this or content_base64.",
		},
		"content_base64": map[string]interface{}{
			"type":        "string",
			"description": "Base64-encoded invoice file: PDF, DOCX, ODT, plain text, or a JPEG/PNG/GIF/WebP image.",
		},
		"mime_type": map[string]interface{}{
			"type":        "string",
			"description": "MIME type of content_base64. Detected from the bytes when omitted.",
		},
		"filename": map[string]interface{}{
			"type":        "string",
			"description": "Optional original file name, used in logs.",
		},
		"handwritten": map[string]interface{}{
			"type":        "boolean",
			"description": "Set for handwritten images; they are upscaled more before OCR.",
		},
	}
}

// MetadataExtractInvoiceFields describes the extract_invoice_fields tool.
var MetadataExtractInvoiceFields = &mcp.Tool{
	Name: "extract_invoice_fields",
	Description: "Read a contractor invoice and return the staff name, property, total amount and date " +
		"it names, with the ranked candidates each was chosen from. Images are OCR'd locally and " +
		"escalated to a vision model when local confidence is low. Nothing is stored.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": documentProperties(),
	},
}

// MetadataReconcileInvoice describes the reconcile_invoice tool.
var MetadataReconcileInvoice = &mcp.Tool{
	Name: "reconcile_invoice",
	Description: "Extract a contractor invoice and reconcile it against the payment ledger. " +
		"Returns full_match when staff name and total agree with a ledger entry, partial_match when " +
		"only one of them does, and no_match otherwise, plus any findings that need human review. " +
		"Pass ledger to reconcile against a ledger other than the server's.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": func() map[string]interface{} {
			p := documentProperties()
			p["ledger"] = map[string]interface{}{
				"type":        "string",
				"description": "Optional YAML or JSON ledger document with \"entries\" and/or \"tasks\".",
			}
			return p
		}(),
	},
}

// InputExtractInvoiceFields is the input for the ExtractInvoiceFields tool.
type InputExtractInvoiceFields struct {
	Text          string `json:"text"`
	ContentBase64 string `json:"content_base64"`
	MIMEType      string `json:"mime_type"`
	Filename      string `json:"filename"`
	Handwritten   bool   `json:"handwritten"`
}

// OutputExtractInvoiceFields is the output for the ExtractInvoiceFields tool.
// Amounts are formatted as "$1234.56".
type OutputExtractInvoiceFields struct {
	StaffName        string   `json:"staff_name"`
	PropertyName     string   `json:"property_name"`
	TotalAmount      string   `json:"total_amount"`
	Date             string   `json:"date"`
	FieldSource      string   `json:"field_source"`
	TextSource       string   `json:"text_source"`
	SourceConfidence float64  `json:"source_confidence"`
	Amounts          []string `json:"amounts"`
	Names            []string `json:"names"`
	Emails           []string `json:"emails"`
	Phones           []string `json:"phones"`
}

// InputReconcileInvoice is the input for the ReconcileInvoice tool.
type InputReconcileInvoice struct {
	InputExtractInvoiceFields
	Ledger string `json:"ledger"`
}

// OutputReconcileInvoice is the output for the ReconcileInvoice tool.
type OutputReconcileInvoice struct {
	Fields           OutputExtractInvoiceFields `json:"fields"`
	Status           string                     `json:"status"`
	MatchedStaffName string                     `json:"matched_staff_name"`
	Details          string                     `json:"details"`
	NameScore        float64                    `json:"name_score"`
	AmountMatched    bool                       `json:"amount_matched"`
	NeedsReview      bool                       `json:"needs_review"`
	Findings         []string                   `json:"findings"`
}

// Extractor acquires text and fields from a document.
type Extractor interface {
	Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractionResult, error)
}

// Invoices serves the invoice tools over one extractor and ledger.
type Invoices struct {
	extractor Extractor
	ledger    ledger.Provider
	matcher   *reconcile.Matcher
	reviewer  *services.Reviewer
	log       logrus.FieldLogger
}

// NewInvoices creates the invoice tools.
func NewInvoices(extractor Extractor, led ledger.Provider, log logrus.FieldLogger) *Invoices {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Invoices{
		extractor: extractor,
		ledger:    led,
		matcher:   reconcile.NewMatcher(log),
		reviewer:  services.NewReviewer(),
		log:       log,
	}
}

// Register adds every invoice tool to server.
func (t *Invoices) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataExtractInvoiceFields, t.ExtractInvoiceFields)
	mcp.AddTool(server, MetadataReconcileInvoice, t.ReconcileInvoice)
}

// ExtractInvoiceFields runs text acquisition and field extraction.
func (t *Invoices) ExtractInvoiceFields(ctx context.Context, _ *mcp.CallToolRequest, input InputExtractInvoiceFields) (*mcp.CallToolResult, OutputExtractInvoiceFields, error) {
	res, err := t.extract(ctx, input)
	if err != nil {
		return nil, OutputExtractInvoiceFields{}, err
	}
	return nil, fieldsOutput(res), nil
}

// ReconcileInvoice extracts the document and matches it against the ledger.
func (t *Invoices) ReconcileInvoice(ctx context.Context, _ *mcp.CallToolRequest, input InputReconcileInvoice) (*mcp.CallToolResult, OutputReconcileInvoice, error) {
	entries, err := t.entries(ctx, input.Ledger)
	if err != nil {
		return nil, OutputReconcileInvoice{}, err
	}
	res, err := t.extract(ctx, input.InputExtractInvoiceFields)
	if err != nil {
		return nil, OutputReconcileInvoice{}, err
	}

	verdict := t.matcher.Match(res, entries)
	review := t.reviewer.Review(res, &verdict)

	out := OutputReconcileInvoice{
		Fields:        fieldsOutput(res),
		Status:        string(verdict.Status),
		Details:       verdict.Details,
		NameScore:     verdict.NameScore,
		AmountMatched: verdict.AmountMatched,
		NeedsReview:   review.NeedsReview,
		Findings:      review.Messages(),
	}
	if verdict.MatchedStaffName != nil {
		out.MatchedStaffName = *verdict.MatchedStaffName
	}
	if out.Findings == nil {
		out.Findings = []string{}
	}
	return nil, out, nil
}

func (t *Invoices) entries(ctx context.Context, override string) ([]models.LedgerEntry, error) {
	if override != "" {
		return ledger.Parse([]byte(override))
	}
	if t.ledger == nil {
		return nil, fmt.Errorf("no ledger loaded; pass one in the ledger field")
	}
	return t.ledger.Ledger(ctx)
}

func (t *Invoices) extract(ctx context.Context, input InputExtractInvoiceFields) (*models.ExtractionResult, error) {
	doc := models.RawDocument{
		MIMEType:      input.MIMEType,
		Filename:      input.Filename,
		IsHandwritten: input.Handwritten,
	}
	switch {
	case input.ContentBase64 != "":
		data, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("content_base64 is not valid base64: %w", err)
		}
		doc.Bytes = data
	case input.Text != "":
		doc.Bytes = []byte(input.Text)
		doc.MIMEType = "text/plain"
	default:
		return nil, fmt.Errorf("text or content_base64 is required")
	}

	t.log.WithFields(logrus.Fields{
		"filename": doc.Filename,
		"size":     len(doc.Bytes),
	}).Debug("Extracting invoice for tool call")
	return t.extractor.Extract(ctx, doc)
}

func fieldsOutput(res *models.ExtractionResult) OutputExtractInvoiceFields {
	out := OutputExtractInvoiceFields{
		StaffName:    res.StaffName,
		PropertyName: res.PropertyName,
		Date:         res.Date,
		FieldSource:  string(res.FieldSource),
		Amounts:      make([]string, 0, len(res.Amounts)),
		Names:        make([]string, 0, len(res.Names)),
		Emails:       make([]string, 0, len(res.Emails)),
		Phones:       make([]string, 0, len(res.Phones)),
	}
	if res.TotalAmount != nil {
		out.TotalAmount = extract.FormatAmount(*res.TotalAmount)
	}
	if res.Text != nil {
		out.TextSource = string(res.Text.Source)
		out.SourceConfidence = res.Text.SourceConfidence
	}
	for _, c := range res.Amounts {
		out.Amounts = append(out.Amounts, extract.FormatAmount(c.Value.Amount))
	}
	for _, c := range res.Names {
		out.Names = append(out.Names, c.Value.Name)
	}
	for _, c := range res.Emails {
		out.Emails = append(out.Emails, c.Value)
	}
	for _, c := range res.Phones {
		out.Phones = append(out.Phones, c.Value)
	}
	return out
}
