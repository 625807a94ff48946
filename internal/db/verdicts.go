package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// Verdict is one reconciliation outcome. Rows are never updated: re-running
// reconciliation appends a new row.
type Verdict struct {
	ID           int64     `json:"id"`
	ExtractionID uuid.UUID `json:"extractionId"`
	models.MatchVerdict
	CreatedAt time.Time `json:"createdAt"`
}

// StatusCount is the number of latest verdicts with a given status.
type StatusCount struct {
	Status models.MatchStatus `json:"status"`
	Count  int                `json:"count"`
}

// AppendVerdict records a verdict for an extraction.
func (r *Repository) AppendVerdict(ctx context.Context, extractionID uuid.UUID, v models.MatchVerdict) (*Verdict, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	out := &Verdict{ExtractionID: extractionID, MatchVerdict: v}
	query := `
		INSERT INTO verdicts (extraction_id, status, matched_staff_name, details, name_score, amount_matched)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		extractionID, string(v.Status), v.MatchedStaffName, v.Details, v.NameScore, v.AmountMatched,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerdictHistory returns every verdict for an extraction, newest first.
func (r *Repository) VerdictHistory(ctx context.Context, extractionID uuid.UUID) ([]Verdict, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	query := `
		SELECT id, extraction_id, status, matched_staff_name, details, name_score, amount_matched, created_at
		FROM verdicts
		WHERE extraction_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, extractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Verdict
	for rows.Next() {
		var v Verdict
		var status string
		if err := rows.Scan(&v.ID, &v.ExtractionID, &status, &v.MatchedStaffName, &v.Details, &v.NameScore, &v.AmountMatched, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Status = models.MatchStatus(status)
		out = append(out, v)
	}
	return out, rows.Err()
}

// VerdictStats counts extractions by the status of their latest verdict.
func (r *Repository) VerdictStats(ctx context.Context) ([]StatusCount, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	query := `
		SELECT status, COUNT(*) FROM (
			SELECT DISTINCT ON (extraction_id) extraction_id, status
			FROM verdicts
			ORDER BY extraction_id, created_at DESC, id DESC
		) latest
		GROUP BY status
		ORDER BY status
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var c StatusCount
		var status string
		if err := rows.Scan(&status, &c.Count); err != nil {
			return nil, err
		}
		c.Status = models.MatchStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
