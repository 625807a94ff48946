package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/ai"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/mocks"
)

func TestTranscriber_Transcribe(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	p := new(mocks.MockProvider)
	p.On("Complete", mock.Anything, mock.MatchedBy(func(r ai.Request) bool {
		return !r.JSON && r.MIMEType == "image/jpeg" && string(r.Image) == string(img)
	})).Return("```\nTotal: $150.00\nStaff: Maria Lopez\n```", nil)

	text, err := ai.NewTranscriber(p).Transcribe(context.Background(), img, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Total: $150.00\nStaff: Maria Lopez", text)
}

func TestTranscriber_Errors(t *testing.T) {
	_, err := ai.NewTranscriber(nil).Transcribe(context.Background(), []byte{1}, "image/png")
	assert.ErrorIs(t, err, ai.ErrNoProvider)

	p := new(mocks.MockProvider)
	_, err = ai.NewTranscriber(p).Transcribe(context.Background(), nil, "image/png")
	assert.Error(t, err)

	rl := ai.NewRateLimitError("gemini", errors.New("429"), 5)
	p.On("Complete", mock.Anything, mock.Anything).Return("", rl)
	_, err = ai.NewTranscriber(p).Transcribe(context.Background(), []byte{1}, "image/png")
	var rlErr *ai.RateLimitError
	assert.ErrorAs(t, err, &rlErr)
}

func TestCreateProvider(t *testing.T) {
	cfg := models.AIConfig{
		OpenAI: models.OpenAIConfig{APIKey: "sk-test"},
		Gemini: models.GeminiConfig{APIKey: "g-test"},
		Ollama: models.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llava"},
	}
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"openai", "openai", false},
		{"gemini", "gemini", false},
		{"ollama", "ollama", false},
		{"claude", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ai.CreateProvider(cfg, tt.name, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	_, err := ai.CreateProvider(models.AIConfig{}, "openai", "")
	assert.Error(t, err)
}

func TestBuildChain(t *testing.T) {
	assert.Nil(t, ai.BuildChain(models.AIConfig{DefaultProvider: "openai"}, nil))

	single := ai.BuildChain(models.AIConfig{
		DefaultProvider: "gemini",
		Fallbacks:       []string{"openai", "gemini"},
		Gemini:          models.GeminiConfig{APIKey: "g"},
	}, nil)
	require.NotNil(t, single)
	assert.Equal(t, "gemini", single.Name())

	chain := ai.BuildChain(models.AIConfig{
		DefaultProvider: "openai",
		Fallbacks:       []string{"gemini", "ollama"},
		OpenAI:          models.OpenAIConfig{APIKey: "sk"},
		Gemini:          models.GeminiConfig{APIKey: "g"},
	}, nil)
	require.NotNil(t, chain)
	assert.Equal(t, "fallback(openai,gemini)", chain.Name())
}
