package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contractorpay/invoice-reconciler/internal/db"
	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// MockRecorder is a mock implementation of pipeline.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) SaveExtraction(ctx context.Context, e *db.Extraction) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRecorder) GetExtraction(ctx context.Context, id uuid.UUID) (*db.Extraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Extraction), args.Error(1)
}

func (m *MockRecorder) AppendVerdict(ctx context.Context, extractionID uuid.UUID, v models.MatchVerdict) (*db.Verdict, error) {
	args := m.Called(ctx, extractionID, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Verdict), args.Error(1)
}
