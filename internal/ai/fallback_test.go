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

func namedProvider(name string) *mocks.MockProvider {
	p := new(mocks.MockProvider)
	p.On("Name").Return(name).Maybe()
	return p
}

var req = ai.Request{Prompt: "read this", JSON: true}

func TestFallbackProvider_FirstSucceeds(t *testing.T) {
	p1, p2 := namedProvider("openai"), namedProvider("gemini")
	p1.On("Complete", mock.Anything, req).Return(`{"ok":true}`, nil)

	fp := ai.NewFallbackProvider(nil, p1, p2)
	out, err := fp.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "fallback(openai,gemini)", fp.Name())
	p2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackProvider_FirstFails_SecondSucceeds(t *testing.T) {
	p1, p2 := namedProvider("openai"), namedProvider("gemini")
	p1.On("Complete", mock.Anything, req).Return("", errors.New("generic error"))
	p2.On("Complete", mock.Anything, req).Return("from gemini", nil)

	out, err := ai.NewFallbackProvider(nil, p1, p2).Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "from gemini", out)
}

func TestFallbackProvider_RateLimitedProviderIsSkipped(t *testing.T) {
	p1, p2 := namedProvider("openai"), namedProvider("gemini")
	p1.On("Complete", mock.Anything, req).Return("", ai.NewRateLimitError("openai", errors.New("429"), 60)).Once()
	p2.On("Complete", mock.Anything, req).Return("from gemini", nil).Twice()

	fp := ai.NewFallbackProvider(nil, p1, p2)
	_, err := fp.Complete(context.Background(), req)
	require.NoError(t, err)

	// circuit open: openai is not called again
	_, err = fp.Complete(context.Background(), req)
	require.NoError(t, err)
	p1.AssertNumberOfCalls(t, "Complete", 1)
	p2.AssertNumberOfCalls(t, "Complete", 2)
}

func TestFallbackProvider_AllRateLimited(t *testing.T) {
	p1, p2 := namedProvider("openai"), namedProvider("gemini")
	p1.On("Complete", mock.Anything, req).Return("", ai.NewRateLimitError("openai", errors.New("429"), 30))
	p2.On("Complete", mock.Anything, req).Return("", ai.NewRateLimitError("gemini", errors.New("429"), 10))

	_, err := ai.NewFallbackProvider(nil, p1, p2).Complete(context.Background(), req)
	var rlErr *ai.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackProvider_AllFail(t *testing.T) {
	p1, p2 := namedProvider("openai"), namedProvider("gemini")
	p1.On("Complete", mock.Anything, req).Return("", ai.NewRateLimitError("openai", errors.New("429"), 30))
	p2.On("Complete", mock.Anything, req).Return("", errors.New("bad gateway"))

	_, err := ai.NewFallbackProvider(nil, p1, p2).Complete(context.Background(), req)
	require.Error(t, err)
	var rlErr *ai.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestFallbackProvider_Empty(t *testing.T) {
	_, err := ai.NewFallbackProvider(nil).Complete(context.Background(), req)
	assert.ErrorIs(t, err, ai.ErrNoProvider)
}

func TestNewRateLimitError_DefaultRetry(t *testing.T) {
	inner := errors.New("429")
	err := ai.NewRateLimitError("openai", inner, 0)
	assert.Equal(t, float64(60), err.RetryAfter.Seconds())
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "openai rate limited")
}
