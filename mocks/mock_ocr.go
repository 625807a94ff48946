package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/ocr"
)

// MockEngine is a mock implementation of ocr.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEngine) Recognize(ctx context.Context, imagePath string) (*ocr.Result, error) {
	args := m.Called(ctx, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ocr.Result), args.Error(1)
}

// MockVisionFallback is a mock implementation of ocr.VisionFallback.
type MockVisionFallback struct {
	mock.Mock
}

func (m *MockVisionFallback) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	args := m.Called(ctx, image, mimeType)
	return args.String(0), args.Error(1)
}

// MockTextSource is a mock for the pipeline's OCR and direct-text stages.
type MockTextSource struct {
	mock.Mock
}

func (m *MockTextSource) Run(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(models.ExtractedText), args.Error(1)
}

func (m *MockTextSource) ReadText(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(models.ExtractedText), args.Error(1)
}
