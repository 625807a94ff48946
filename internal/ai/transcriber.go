package ai

import (
	"context"
	"fmt"
)

const transcribePrompt = `You are reading a scanned contractor invoice. It may be handwritten.
Transcribe ALL visible text exactly as written, line by line, top to bottom.
Keep numbers, currency symbols, dates and names exactly as they appear.
Do not summarize, translate, correct or add anything. Return only the transcription.`

// Transcriber asks a vision model for the full text of an image.
type Transcriber struct {
	provider Provider
}

// NewTranscriber creates a vision transcriber.
func NewTranscriber(provider Provider) *Transcriber {
	return &Transcriber{provider: provider}
}

// Transcribe returns the raw text the model reads from image.
func (t *Transcriber) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if t.provider == nil {
		return "", ErrNoProvider
	}
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	out, err := t.provider.Complete(ctx, Request{Prompt: transcribePrompt, Image: image, MIMEType: mimeType})
	if err != nil {
		return "", fmt.Errorf("vision transcription failed: %w", err)
	}
	return stripCodeFences(out), nil
}
