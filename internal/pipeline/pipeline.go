package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/db"
	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/reader"
	"github.com/contractorpay/invoice-reconciler/internal/reconcile"
	"github.com/contractorpay/invoice-reconciler/internal/services"
	"github.com/contractorpay/invoice-reconciler/internal/storage"
)

// ErrNoOCR is returned for image documents when no OCR controller is configured.
var ErrNoOCR = errors.New("OCR is not configured")

// OCR turns an image document into text.
type OCR interface {
	Run(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error)
}

// TextReader reads embedded text from non-image documents.
type TextReader interface {
	ReadText(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error)
}

// Recorder persists extractions and verdict history.
type Recorder interface {
	SaveExtraction(ctx context.Context, e *db.Extraction) error
	GetExtraction(ctx context.Context, id uuid.UUID) (*db.Extraction, error)
	AppendVerdict(ctx context.Context, extractionID uuid.UUID, v models.MatchVerdict) (*db.Verdict, error)
}

// Outcome is everything produced for one document.
type Outcome struct {
	ID          uuid.UUID                `json:"id"`
	DocumentKey string                   `json:"documentKey,omitempty"`
	Result      *models.ExtractionResult `json:"result"`
	Verdict     models.MatchVerdict      `json:"verdict"`
	Review      *services.ReviewResult   `json:"review"`
	Persisted   bool                     `json:"persisted"`
	DurationMs  int64                    `json:"durationMs"`
}

// Pipeline runs one document from bytes to verdict. Each call is sequential;
// concurrent calls share only the read-only ledger and the OCR limits.
type Pipeline struct {
	ocr        OCR
	text       TextReader
	aggregator *extract.Aggregator
	matcher    *reconcile.Matcher
	ledger     ledger.Provider
	reviewer   *services.Reviewer
	store      storage.DocumentStore
	recorder   Recorder
	now        func() time.Time
	log        logrus.FieldLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithOCR(o OCR) Option                        { return func(p *Pipeline) { p.ocr = o } }
func WithTextReader(r TextReader) Option          { return func(p *Pipeline) { p.text = r } }
func WithAggregator(a *extract.Aggregator) Option { return func(p *Pipeline) { p.aggregator = a } }
func WithReviewer(r *services.Reviewer) Option    { return func(p *Pipeline) { p.reviewer = r } }
func WithStore(s storage.DocumentStore) Option    { return func(p *Pipeline) { p.store = s } }
func WithRecorder(r Recorder) Option              { return func(p *Pipeline) { p.recorder = r } }
func WithClock(now func() time.Time) Option       { return func(p *Pipeline) { p.now = now } }
func WithLogger(l logrus.FieldLogger) Option      { return func(p *Pipeline) { p.log = l } }

// New creates a pipeline reconciling against ledger.
func New(ledger ledger.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:   ledger,
		reviewer: services.NewReviewer(),
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.text == nil {
		p.text = reader.New("", p.log)
	}
	if p.aggregator == nil {
		p.aggregator = extract.NewAggregator(extract.WithLogger(p.log))
	}
	p.matcher = reconcile.NewMatcher(p.log)
	return p
}

// Process runs a new upload: the original bytes are stored, then processed.
func (p *Pipeline) Process(ctx context.Context, doc models.RawDocument) (*Outcome, error) {
	if len(doc.Bytes) == 0 {
		return nil, reader.ErrEmptyDocument
	}
	if doc.MIMEType == "" || doc.MIMEType == "application/octet-stream" {
		doc.MIMEType = reader.DetectMIME(doc.Bytes)
	}
	if !reader.IsImage(doc.MIMEType) && !reader.Supports(doc.MIMEType) {
		return nil, fmt.Errorf("%w: %s", reader.ErrUnsupportedType, doc.MIMEType)
	}

	id := uuid.New()
	key := ""
	if p.store != nil {
		key = storage.ObjectKey(id.String(), doc.MIMEType, p.now())
		err := p.store.Put(ctx, storage.Object{
			Key:         key,
			ContentType: doc.MIMEType,
			Data:        doc.Bytes,
			Metadata:    map[string]string{"filename": doc.Filename},
		})
		if err != nil {
			p.log.WithError(err).WithField("key", key).Warn("Failed to store original document")
			key = ""
		}
	}
	return p.run(ctx, id, key, doc)
}

// ProcessStored processes a document already in the store, e.g. from the queue.
func (p *Pipeline) ProcessStored(ctx context.Context, key string, handwritten bool) (*Outcome, error) {
	if p.store == nil {
		return nil, errors.New("no document store configured")
	}
	obj, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", key, err)
	}
	doc := models.RawDocument{
		Bytes:         obj.Data,
		MIMEType:      obj.ContentType,
		Filename:      obj.Metadata["filename"],
		IsHandwritten: handwritten,
	}
	if len(doc.Bytes) == 0 {
		return nil, reader.ErrEmptyDocument
	}
	return p.run(ctx, uuid.New(), key, doc)
}

// Extract acquires text and fields without reconciling or persisting.
func (p *Pipeline) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractionResult, error) {
	if len(doc.Bytes) == 0 {
		return nil, reader.ErrEmptyDocument
	}
	if doc.MIMEType == "" || doc.MIMEType == "application/octet-stream" {
		doc.MIMEType = reader.DetectMIME(doc.Bytes)
	}
	text, err := p.acquire(ctx, doc)
	if err != nil {
		return nil, err
	}
	return p.aggregator.Aggregate(ctx, text), nil
}

// Reconcile matches a saved extraction against the current ledger and
// appends the new verdict to its history.
func (p *Pipeline) Reconcile(ctx context.Context, id uuid.UUID) (*db.Verdict, error) {
	if p.recorder == nil {
		return nil, db.ErrNoDatabase
	}
	e, err := p.recorder.GetExtraction(ctx, id)
	if err != nil {
		return nil, err
	}
	verdict := p.match(ctx, e.Result)
	return p.recorder.AppendVerdict(ctx, id, verdict)
}

func (p *Pipeline) run(ctx context.Context, id uuid.UUID, key string, doc models.RawDocument) (*Outcome, error) {
	start := p.now()
	log := p.log.WithFields(logrus.Fields{"document_id": id, "mime": doc.MIMEType})

	text, err := p.acquire(ctx, doc)
	if err != nil {
		return nil, err
	}

	result := p.aggregator.Aggregate(ctx, text)
	verdict := p.match(ctx, result)
	review := p.reviewer.Review(result, &verdict)
	result.Warnings = review.Messages()

	out := &Outcome{
		ID:          id,
		DocumentKey: key,
		Result:      result,
		Verdict:     verdict,
		Review:      review,
	}
	out.Persisted = p.persist(ctx, log, doc, out)
	out.DurationMs = p.now().Sub(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"source":       text.Source,
		"confidence":   text.SourceConfidence,
		"status":       verdict.Status,
		"needs_review": review.NeedsReview,
		"duration_ms":  out.DurationMs,
	}).Info("Document processed")
	return out, nil
}

// acquire picks the text path for the document type and applies correction.
func (p *Pipeline) acquire(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	var (
		text models.ExtractedText
		err  error
	)
	switch {
	case reader.IsImage(doc.MIMEType):
		if p.ocr == nil {
			return models.ExtractedText{}, ErrNoOCR
		}
		text, err = p.ocr.Run(ctx, doc)
	default:
		text, err = p.text.ReadText(ctx, doc)
	}
	if err != nil {
		return models.ExtractedText{}, err
	}
	text.Corrected = extract.Correct(text.Raw)
	return text, nil
}

// match returns pending when the ledger cannot be read.
func (p *Pipeline) match(ctx context.Context, result *models.ExtractionResult) models.MatchVerdict {
	if p.ledger == nil {
		return models.MatchVerdict{Status: models.Pending, Details: "no ledger configured"}
	}
	entries, err := p.ledger.Ledger(ctx)
	if err != nil {
		p.log.WithError(err).Warn("Ledger unavailable, verdict pending")
		return models.MatchVerdict{Status: models.Pending, Details: "ledger unavailable: " + err.Error()}
	}
	return p.matcher.Match(result, entries)
}

func (p *Pipeline) persist(ctx context.Context, log logrus.FieldLogger, doc models.RawDocument, out *Outcome) bool {
	if p.recorder == nil {
		return false
	}
	e := db.NewExtraction(doc, out.DocumentKey, out.Result)
	e.ID = out.ID
	if err := p.recorder.SaveExtraction(ctx, e); err != nil {
		if !errors.Is(err, db.ErrNoDatabase) {
			log.WithError(err).Error("Failed to save extraction")
		}
		return false
	}
	if _, err := p.recorder.AppendVerdict(ctx, out.ID, out.Verdict); err != nil {
		log.WithError(err).Error("Failed to save verdict")
		return false
	}
	return true
}
