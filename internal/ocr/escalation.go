package ocr

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const (
	// DefaultConfidenceThreshold is the local OCR confidence needed to skip the vision model.
	DefaultConfidenceThreshold = 60.0
	// VisionConfidence is reported for any non-empty vision transcription.
	VisionConfidence = 95.0
)

// VisionFallback transcribes an image with a vision-capable model.
type VisionFallback interface {
	Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Decision is the outcome of judging a local OCR result.
type Decision interface {
	decision()
}

// Accepted means the local result is good enough.
type Accepted struct {
	Text       string
	Confidence float64
}

// Escalate means the vision model should be tried.
type Escalate struct {
	Reason string
}

func (Accepted) decision() {}
func (Escalate) decision() {}

// Decide accepts local OCR output at or above threshold, otherwise escalates.
func Decide(local *Result, threshold float64) Decision {
	switch {
	case local == nil:
		return Escalate{Reason: "local OCR produced no result"}
	case strings.TrimSpace(local.Text) == "":
		return Escalate{Reason: "local OCR produced no text"}
	case local.Confidence < threshold:
		return Escalate{Reason: fmt.Sprintf("local OCR confidence %.1f below %.1f", local.Confidence, threshold)}
	default:
		return Accepted{Text: local.Text, Confidence: local.Confidence}
	}
}

// Controller runs preprocess, local OCR and, when needed, the vision fallback
// for one image document.
type Controller struct {
	pre         *Preprocessor
	engine      Engine
	vision      VisionFallback
	limiter     *rate.Limiter
	slots       *semaphore.Weighted
	threshold   float64
	artifactDir string
	log         logrus.FieldLogger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithVision enables escalation to a vision model.
func WithVision(v VisionFallback) ControllerOption {
	return func(c *Controller) { c.vision = v }
}

// WithVisionRate limits vision calls across all documents.
func WithVisionRate(perSecond float64, burst int) ControllerOption {
	return func(c *Controller) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithThreshold overrides the acceptance threshold.
func WithThreshold(t float64) ControllerOption {
	return func(c *Controller) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// WithMaxConcurrent bounds simultaneous local OCR runs.
func WithMaxConcurrent(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithArtifactDir sets where preprocessed images are written.
func WithArtifactDir(dir string) ControllerOption {
	return func(c *Controller) { c.artifactDir = dir }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l logrus.FieldLogger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController creates a controller around a local engine.
func NewController(engine Engine, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:    engine,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		slots:     semaphore.NewWeighted(int64(runtime.NumCPU())),
		threshold: DefaultConfidenceThreshold,
		log:       logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	c.pre = NewPreprocessor(c.log)
	return c
}

// Run extracts text from an image document. Only context cancellation is
// returned as an error; every other failure degrades to the best text available.
func (c *Controller) Run(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	log := c.log.WithFields(logrus.Fields{
		"mime":        doc.MIMEType,
		"handwritten": doc.IsHandwritten,
	})

	local, err := c.runLocal(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ExtractedText{}, ctxErr
		}
		log.WithError(err).Warn("Local OCR failed")
		local = &Result{}
	}

	switch d := Decide(local, c.threshold).(type) {
	case Accepted:
		log.WithField("confidence", d.Confidence).Info("Local OCR accepted")
		return models.ExtractedText{
			Raw:              d.Text,
			SourceConfidence: d.Confidence,
			Source:           models.SourceLocalOCR,
		}, nil
	case Escalate:
		return c.escalate(ctx, log.WithField("reason", d.Reason), doc, local)
	default:
		return models.ExtractedText{}, fmt.Errorf("unknown OCR decision %T", d)
	}
}

// runLocal preprocesses into a temporary artifact and runs the local engine
// inside a concurrency slot. The artifact is removed on every path.
func (c *Controller) runLocal(ctx context.Context, doc models.RawDocument) (*Result, error) {
	processed := c.pre.Preprocess(doc.Bytes, doc.IsHandwritten)

	path, cleanup, err := c.writeArtifact(processed.Data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.slots.Release(1)

	return c.engine.Recognize(ctx, path)
}

func (c *Controller) writeArtifact(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(c.artifactDir, "ocr-*.png")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create OCR artifact: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.log.WithError(err).WithField("path", path).Warn("Failed to remove OCR artifact")
		}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write OCR artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write OCR artifact: %w", err)
	}
	return path, cleanup, nil
}

func (c *Controller) escalate(ctx context.Context, log logrus.FieldLogger, doc models.RawDocument, local *Result) (models.ExtractedText, error) {
	degraded := models.ExtractedText{
		Raw:              local.Text,
		SourceConfidence: local.Confidence,
		Source:           models.SourceLocalOCRDegraded,
	}
	if c.vision == nil {
		log.Warn("No vision model configured, keeping local OCR text")
		return degraded, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ExtractedText{}, ctxErr
		}
		log.WithError(err).Warn("Vision rate limit wait failed, keeping local OCR text")
		return degraded, nil
	}

	text, err := c.vision.Transcribe(ctx, doc.Bytes, doc.MIMEType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ExtractedText{}, ctxErr
		}
		log.WithError(err).Warn("Vision fallback failed, keeping local OCR text")
		return degraded, nil
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("Vision fallback returned no text, keeping local OCR text")
		return degraded, nil
	}

	log.WithFields(logrus.Fields{
		"local_confidence": local.Confidence,
		"confidence":       VisionConfidence,
	}).Info("Vision fallback used")
	return models.ExtractedText{
		Raw:              text,
		SourceConfidence: VisionConfidence,
		Source:           models.SourceVisionFallback,
	}, nil
}
