package extract

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// FieldExtractor reads scalar fields with a language model.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*models.AIFields, error)
}

// Aggregator runs every field extractor over one document's text.
type Aggregator struct {
	dates *DateExtractor
	ai    FieldExtractor
	log   logrus.FieldLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithFieldExtractor enables the AI cross-check.
func WithFieldExtractor(fe FieldExtractor) Option {
	return func(a *Aggregator) { a.ai = fe }
}

// WithDateExtractor replaces the date extractor, e.g. to pin the clock.
func WithDateExtractor(d *DateExtractor) Option {
	return func(a *Aggregator) { a.dates = d }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = l }
}

// NewAggregator creates an aggregator. Without a FieldExtractor it is regex-only.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		dates: NewDateExtractor(),
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate extracts every field from text. Dates, amounts and phones are
// read from the corrected text; names, emails and addresses from the raw text.
// An AI failure degrades to heuristic fields and is never returned.
func (a *Aggregator) Aggregate(ctx context.Context, text models.ExtractedText) *models.ExtractionResult {
	corrected := text.Corrected
	if corrected == "" {
		corrected = Correct(text.Raw)
	}

	res := &models.ExtractionResult{
		Dates:       a.dates.Extract(corrected),
		Amounts:     ExtractAmounts(corrected),
		Names:       ExtractNames(text.Raw),
		Emails:      ExtractEmails(text.Raw),
		Phones:      ExtractPhones(corrected),
		Addresses:   ExtractAddresses(text.Raw),
		FieldSource: models.FieldsFromHeuristic,
		Text:        &text,
	}
	a.fillHeuristics(res)

	if a.ai != nil && strings.TrimSpace(corrected) != "" {
		fields, err := a.ai.ExtractFields(ctx, corrected)
		if err != nil {
			a.log.WithError(err).Warn("AI field extraction failed, using regex results only")
		} else {
			a.mergeAI(res, fields)
		}
	}

	a.log.WithFields(logrus.Fields{
		"dates":        len(res.Dates),
		"amounts":      len(res.Amounts),
		"names":        len(res.Names),
		"field_source": res.FieldSource,
	}).Debug("Fields extracted")
	return res
}

func (a *Aggregator) fillHeuristics(res *models.ExtractionResult) {
	if len(res.Dates) > 0 {
		res.Date = res.Dates[0].Value.ISODate
	}
	if amt, ok := res.TopAmount(); ok {
		res.TotalAmount = &amt
	}
	res.StaffName = topName(res.Names, models.NameStaff)
	if res.StaffName == "" {
		res.StaffName = topName(res.Names, models.NameUnknown)
	}
	res.PropertyName = topName(res.Names, models.NameProperty)
}

func topName(names []models.Candidate[models.NameValue], kind models.NameType) string {
	for _, n := range names {
		if n.Value.Type == kind {
			return n.Value.Name
		}
	}
	return ""
}

// mergeAI prefers every non-null AI field over the heuristic one.
func (a *Aggregator) mergeAI(res *models.ExtractionResult, f *models.AIFields) {
	if f == nil {
		return
	}
	res.AIUsed = true
	used := 0
	if f.StaffName != nil && strings.TrimSpace(*f.StaffName) != "" {
		res.StaffName = strings.TrimSpace(*f.StaffName)
		used++
	}
	if f.TotalAmount != nil {
		amt := *f.TotalAmount
		res.TotalAmount = &amt
		used++
	}
	if f.Date != nil {
		if iso, ok := ParseDate(*f.Date); ok {
			res.Date = iso
			used++
		}
	}
	if f.PropertyName != nil && strings.TrimSpace(*f.PropertyName) != "" {
		res.PropertyName = strings.TrimSpace(*f.PropertyName)
		used++
	}
	switch {
	case used == 4:
		res.FieldSource = models.FieldsFromAI
	case used > 0:
		res.FieldSource = models.FieldsMixed
	}
}
