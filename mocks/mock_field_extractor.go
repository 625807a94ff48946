package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// MockFieldExtractor is a mock implementation of extract.FieldExtractor.
type MockFieldExtractor struct {
	mock.Mock
}

func (m *MockFieldExtractor) ExtractFields(ctx context.Context, text string) (*models.AIFields, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIFields), args.Error(1)
}
