package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/contractorpay/invoice-reconciler/internal/ai"
)

// MockProvider is a mock implementation of ai.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
