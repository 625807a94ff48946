//go:build !ocr

package ocr

import "context"

// GosseractOCR is unavailable without the ocr build tag.
type GosseractOCR struct {
	language string
}

// NewGosseractOCR returns an engine that reports ErrOCRNotEnabled.
func NewGosseractOCR(language string) *GosseractOCR {
	return &GosseractOCR{language: language}
}

// Name implements Engine.
func (g *GosseractOCR) Name() string { return "gosseract" }

// Recognize implements Engine.
func (g *GosseractOCR) Recognize(context.Context, string) (*Result, error) {
	return nil, ErrOCRNotEnabled
}
