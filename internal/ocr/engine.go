package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// ErrOCRNotEnabled is returned by engines not compiled into this binary.
var ErrOCRNotEnabled = errors.New("ocr engine not enabled in this build")

// Result is the output of one local OCR run.
type Result struct {
	Text       string
	Confidence float64 // mean word confidence, 0-100
	Words      []WordInfo
}

// WordInfo contains detailed information about a detected word
type WordInfo struct {
	Text       string
	Confidence float64
	Box        BoundingBox
}

// BoundingBox represents the location of text in the image
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Engine runs local OCR on an image file.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (*Result, error)
}

// NewEngine builds the engine named in the config.
func NewEngine(cfg models.OCRConfig, log logrus.FieldLogger) (Engine, error) {
	switch cfg.Engine {
	case "", "tesseract":
		return NewTesseractOCR(cfg.Language, nil, log), nil
	case "gosseract":
		return NewGosseractOCR(cfg.Language), nil
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", cfg.Engine)
	}
}

func meanConfidence(words []WordInfo) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
