package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// ErrNotFound is returned when an extraction id does not exist.
var ErrNotFound = errors.New("extraction not found")

// Extraction is one processed document.
type Extraction struct {
	ID               uuid.UUID        `json:"id"`
	DocumentKey      string           `json:"documentKey,omitempty"`
	Filename         string           `json:"filename,omitempty"`
	MIMEType         string           `json:"mimeType,omitempty"`
	TextSource       string           `json:"textSource"`
	SourceConfidence float64          `json:"sourceConfidence"`
	StaffName        string           `json:"staffName,omitempty"`
	PropertyName     string           `json:"propertyName,omitempty"`
	TotalAmount      *decimal.Decimal `json:"totalAmount,omitempty"`
	InvoiceDate      string           `json:"invoiceDate,omitempty"`
	FieldSource      string           `json:"fieldSource"`
	CreatedAt        time.Time        `json:"createdAt"`

	Result *models.ExtractionResult `json:"result,omitempty"`
}

// NewExtraction flattens an extraction result into a row.
func NewExtraction(doc models.RawDocument, key string, res *models.ExtractionResult) *Extraction {
	e := &Extraction{
		ID:           uuid.New(),
		DocumentKey:  key,
		Filename:     doc.Filename,
		MIMEType:     doc.MIMEType,
		StaffName:    res.StaffName,
		PropertyName: res.PropertyName,
		TotalAmount:  res.TotalAmount,
		InvoiceDate:  res.Date,
		FieldSource:  string(res.FieldSource),
		Result:       res,
	}
	if res.Text != nil {
		e.TextSource = string(res.Text.Source)
		e.SourceConfidence = res.Text.SourceConfidence
	}
	return e
}

// SaveExtraction inserts a new extraction.
func (r *Repository) SaveExtraction(ctx context.Context, e *Extraction) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	resultJSON, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `
		INSERT INTO extractions (
			id, document_key, filename, mime_type, text_source, source_confidence,
			staff_name, property_name, total_amount, invoice_date, field_source, result_json
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9::numeric, NULLIF($10, '')::date, $11, $12::jsonb)
		RETURNING created_at
	`
	return r.pool.QueryRow(ctx, query,
		e.ID, e.DocumentKey, e.Filename, e.MIMEType, e.TextSource, e.SourceConfidence,
		e.StaffName, e.PropertyName, amountParam(e.TotalAmount), e.InvoiceDate, e.FieldSource, string(resultJSON),
	).Scan(&e.CreatedAt)
}

// GetExtraction loads one extraction including its full result.
func (r *Repository) GetExtraction(ctx context.Context, id uuid.UUID) (*Extraction, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	query := `
		SELECT id, document_key, filename, mime_type, text_source, source_confidence,
		       COALESCE(staff_name, ''), COALESCE(property_name, ''), COALESCE(total_amount::text, ''),
		       COALESCE(to_char(invoice_date, 'YYYY-MM-DD'), ''), field_source, created_at, result_json
		FROM extractions
		WHERE id = $1
	`
	e, err := scanExtraction(r.pool.QueryRow(ctx, query, id), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListExtractions returns extractions newest first, with the total count.
func (r *Repository) ListExtractions(ctx context.Context, limit, offset int) ([]Extraction, int, error) {
	if !r.Available() {
		return nil, 0, ErrNoDatabase
	}

	// Count total
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, document_key, filename, mime_type, text_source, source_confidence,
		       COALESCE(staff_name, ''), COALESCE(property_name, ''), COALESCE(total_amount::text, ''),
		       COALESCE(to_char(invoice_date, 'YYYY-MM-DD'), ''), field_source, created_at
		FROM extractions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		e, err := scanExtraction(rows, false)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// DeleteExtraction removes an extraction and its verdict history.
func (r *Repository) DeleteExtraction(ctx context.Context, id uuid.UUID) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM extractions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExtraction(row pgx.Row, withResult bool) (*Extraction, error) {
	var (
		e          Extraction
		amount     string
		resultJSON []byte
	)
	dest := []any{
		&e.ID, &e.DocumentKey, &e.Filename, &e.MIMEType, &e.TextSource, &e.SourceConfidence,
		&e.StaffName, &e.PropertyName, &amount, &e.InvoiceDate, &e.FieldSource, &e.CreatedAt,
	}
	if withResult {
		dest = append(dest, &resultJSON)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad stored amount %q: %w", amount, err)
		}
		e.TotalAmount = &d
	}
	if withResult && len(resultJSON) > 0 {
		e.Result = &models.ExtractionResult{}
		if err := json.Unmarshal(resultJSON, e.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return &e, nil
}

func amountParam(a *decimal.Decimal) *string {
	if a == nil {
		return nil
	}
	s := a.StringFixed(2)
	return &s
}
