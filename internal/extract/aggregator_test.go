package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/mocks"
)

const rawInvoice = "INVOICE\nContractor: Mike Ross\nProperty: Sunset Villa\nDate: 14/02/2026\nTotal: $15O.00\nmike.ross@example.com (555) 201-3344\n"

func ptr[T any](v T) *T { return &v }

func TestAggregate_HeuristicsOnly(t *testing.T) {
	a := extract.NewAggregator(extract.WithDateExtractor(extract.NewDateExtractor().WithClock(fixedClock())))
	res := a.Aggregate(context.Background(), models.ExtractedText{Raw: rawInvoice, Source: models.SourceLocalOCR, SourceConfidence: 80})

	assert.Equal(t, "Mike Ross", res.StaffName)
	assert.Equal(t, "Sunset Villa", res.PropertyName)
	assert.Equal(t, "2026-02-14", res.Date)
	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "150.00", res.TotalAmount.StringFixed(2))
	assert.Equal(t, models.FieldsFromHeuristic, res.FieldSource)
	assert.False(t, res.AIUsed)

	require.NotEmpty(t, res.Emails)
	assert.Equal(t, "mike.ross@example.com", res.Emails[0].Value)
	require.NotEmpty(t, res.Phones)
	assert.Equal(t, "5552013344", res.Phones[0].Value)
	require.NotNil(t, res.Text)
	assert.Equal(t, models.SourceLocalOCR, res.Text.Source)
}

func TestAggregate_AIPreferredWhenPresent(t *testing.T) {
	fe := new(mocks.MockFieldExtractor)
	total := decimal.RequireFromString("175.00")
	fe.On("ExtractFields", mock.Anything, mock.AnythingOfType("string")).Return(&models.AIFields{
		StaffName:    ptr("Michael Ross"),
		TotalAmount:  &total,
		Date:         ptr("2026-02-15"),
		PropertyName: ptr("Sunset Villa #4"),
		Confidence:   90,
	}, nil)

	res := extract.NewAggregator(extract.WithFieldExtractor(fe)).Aggregate(context.Background(), models.ExtractedText{Raw: rawInvoice})

	assert.Equal(t, "Michael Ross", res.StaffName)
	assert.Equal(t, "175.00", res.TotalAmount.StringFixed(2))
	assert.Equal(t, "2026-02-15", res.Date)
	assert.Equal(t, "Sunset Villa #4", res.PropertyName)
	assert.Equal(t, models.FieldsFromAI, res.FieldSource)
	assert.True(t, res.AIUsed)

	// candidate lists are still the heuristic ones
	top, ok := res.TopAmount()
	require.True(t, ok)
	assert.Equal(t, "150.00", top.StringFixed(2))
	fe.AssertExpectations(t)
}

func TestAggregate_AINullFieldsKeepHeuristics(t *testing.T) {
	fe := new(mocks.MockFieldExtractor)
	fe.On("ExtractFields", mock.Anything, mock.Anything).Return(&models.AIFields{StaffName: ptr("Michael Ross")}, nil)

	res := extract.NewAggregator(extract.WithFieldExtractor(fe)).Aggregate(context.Background(), models.ExtractedText{Raw: rawInvoice})

	assert.Equal(t, "Michael Ross", res.StaffName)
	assert.Equal(t, "150.00", res.TotalAmount.StringFixed(2))
	assert.Equal(t, "Sunset Villa", res.PropertyName)
	assert.Equal(t, models.FieldsMixed, res.FieldSource)
}

func TestAggregate_AIFailureDegrades(t *testing.T) {
	fe := new(mocks.MockFieldExtractor)
	fe.On("ExtractFields", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	res := extract.NewAggregator(extract.WithFieldExtractor(fe)).Aggregate(context.Background(), models.ExtractedText{Raw: rawInvoice})

	assert.Equal(t, "Mike Ross", res.StaffName)
	assert.Equal(t, models.FieldsFromHeuristic, res.FieldSource)
	assert.False(t, res.AIUsed)
}

func TestAggregate_EmptyTextSkipsAI(t *testing.T) {
	fe := new(mocks.MockFieldExtractor)
	res := extract.NewAggregator(extract.WithFieldExtractor(fe)).Aggregate(context.Background(), models.ExtractedText{Raw: "   "})

	assert.Empty(t, res.Amounts)
	assert.Nil(t, res.TotalAmount)
	assert.Empty(t, res.StaffName)
	fe.AssertNotCalled(t, "ExtractFields", mock.Anything, mock.Anything)
}

func TestAggregate_UnknownNameFallsBackToStaff(t *testing.T) {
	res := extract.NewAggregator().Aggregate(context.Background(), models.ExtractedText{Raw: "Cleaning done\nJane Porter\n$80.00"})
	assert.Equal(t, "Jane Porter", res.StaffName)
}

func TestAggregate_StreetIsNotStaff(t *testing.T) {
	res := extract.NewAggregator().Aggregate(context.Background(), models.ExtractedText{Raw: "45 Maple Avenue\nMike Rodriguez\nTotal $150.00\n"})

	assert.Equal(t, "Mike Rodriguez", res.StaffName)
	assert.Equal(t, "45 Maple Avenue", res.PropertyName)
	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "150.00", res.TotalAmount.StringFixed(2))
}

func TestAggregate_ZipAndAreaCodeAreNotAmounts(t *testing.T) {
	res := extract.NewAggregator().Aggregate(context.Background(), models.ExtractedText{
		Raw: "Mike Rodriguez\n12 Elm Street, Austin TX 78701\nCall (512) 555-0199\nDeep clean 150\n",
	})

	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "150.00", res.TotalAmount.StringFixed(2))
	require.Len(t, res.Amounts, 1)
	assert.Equal(t, "Mike Rodriguez", res.StaffName)
}
