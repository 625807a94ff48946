//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractOCR uses the tesseract C API through cgo. Build with -tags ocr.
type GosseractOCR struct {
	language string
}

// NewGosseractOCR creates a cgo-backed engine.
func NewGosseractOCR(language string) *GosseractOCR {
	if language == "" {
		language = "eng"
	}
	return &GosseractOCR{language: language}
}

// Name implements Engine.
func (g *GosseractOCR) Name() string { return "gosseract" }

// Recognize implements Engine. A new client per call keeps it goroutine safe.
func (g *GosseractOCR) Recognize(ctx context.Context, imagePath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(g.language); err != nil {
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to read word boxes: %w", err)
	}

	words := make([]WordInfo, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, WordInfo{
			Text:       box.Word,
			Confidence: box.Confidence,
			Box: BoundingBox{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
		})
	}
	return &Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanConfidence(words),
		Words:      words,
	}, nil
}
