package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/ai"
	"github.com/contractorpay/invoice-reconciler/mocks"
)

func TestExtractor_ExtractFields(t *testing.T) {
	tests := []struct {
		name     string
		response string
		validate func(t *testing.T, staff, total, date, property string, conf float64)
	}{
		{
			name:     "plain json",
			response: `{"staffName":"Maria Lopez","totalAmount":150.5,"date":"2026-02-14","propertyName":"Oak House","confidence":88}`,
			validate: func(t *testing.T, staff, total, date, property string, conf float64) {
				assert.Equal(t, "Maria Lopez", staff)
				assert.Equal(t, "150.50", total)
				assert.Equal(t, "2026-02-14", date)
				assert.Equal(t, "Oak House", property)
				assert.Equal(t, 88.0, conf)
			},
		},
		{
			name:     "fenced with string amount and day-first date",
			response: "```json\n{\"staffName\":\"Mike Ross\",\"totalAmount\":\"$1,234.56\",\"date\":\"05/06/2025\",\"propertyName\":null}\n```",
			validate: func(t *testing.T, staff, total, date, property string, conf float64) {
				assert.Equal(t, "Mike Ross", staff)
				assert.Equal(t, "1234.56", total)
				assert.Equal(t, "2025-06-05", date)
				assert.Empty(t, property)
				assert.Equal(t, 85.0, conf)
			},
		},
		{
			name:     "prose around json and null-ish strings",
			response: "Here you go:\n{\"staffName\":\"null\",\"totalAmount\":null,\"date\":\"not a date\",\"propertyName\":\" \"}\nThanks",
			validate: func(t *testing.T, staff, total, date, property string, conf float64) {
				assert.Empty(t, staff)
				assert.Empty(t, total)
				assert.Empty(t, date)
				assert.Empty(t, property)
				assert.Zero(t, conf)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mocks.MockProvider)
			p.On("Name").Return("openai").Maybe()
			p.On("Complete", mock.Anything, mock.MatchedBy(func(r ai.Request) bool {
				return r.JSON && len(r.Image) == 0
			})).Return(tt.response, nil)

			f, err := ai.NewExtractor(p, nil).ExtractFields(context.Background(), "Staff: Maria Lopez")
			require.NoError(t, err)

			var staff, total, date, property string
			if f.StaffName != nil {
				staff = *f.StaffName
			}
			if f.TotalAmount != nil {
				total = f.TotalAmount.StringFixed(2)
			}
			if f.Date != nil {
				date = *f.Date
			}
			if f.PropertyName != nil {
				property = *f.PropertyName
			}
			tt.validate(t, staff, total, date, property, f.Confidence)
		})
	}
}

func TestExtractor_Errors(t *testing.T) {
	_, err := ai.NewExtractor(nil, nil).ExtractFields(context.Background(), "x")
	assert.ErrorIs(t, err, ai.ErrNoProvider)

	p := new(mocks.MockProvider)
	p.On("Name").Return("openai").Maybe()
	p.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()
	_, err = ai.NewExtractor(p, nil).ExtractFields(context.Background(), "x")
	assert.ErrorContains(t, err, "timeout")

	p.On("Complete", mock.Anything, mock.Anything).Return(`{"staffName": 42}`, nil).Once()
	_, err = ai.NewExtractor(p, nil).ExtractFields(context.Background(), "x")
	assert.ErrorContains(t, err, "schema")

	p.On("Complete", mock.Anything, mock.Anything).Return(`no json at all`, nil).Once()
	_, err = ai.NewExtractor(p, nil).ExtractFields(context.Background(), "x")
	assert.Error(t, err)
}

func TestValidateFieldsJSON(t *testing.T) {
	assert.NoError(t, ai.ValidateFieldsJSON([]byte(`{"totalAmount":"12.00","confidence":50}`)))
	assert.Error(t, ai.ValidateFieldsJSON([]byte(`{"confidence":150}`)))
	assert.Error(t, ai.ValidateFieldsJSON([]byte(`[1,2]`)))
	assert.Error(t, ai.ValidateFieldsJSON([]byte(`{`)))
}
