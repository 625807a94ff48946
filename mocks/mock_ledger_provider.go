package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// MockLedgerProvider is a mock implementation of ledger.Provider.
type MockLedgerProvider struct {
	mock.Mock
}

func (m *MockLedgerProvider) Ledger(ctx context.Context) ([]models.LedgerEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}
