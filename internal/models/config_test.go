package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg models.Config
	cfg.ApplyDefaults()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 60.0, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.Workers)
}

func TestConfig_YAMLKeepsExplicitValues(t *testing.T) {
	raw := `
port: 9000
ocr:
  engine: gosseract
  confidence_threshold: 75
ai:
  default_provider: gemini
  fallbacks: [openai, ollama]
`
	var cfg models.Config
	assert.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	cfg.ApplyDefaults()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "gosseract", cfg.OCR.Engine)
	assert.Equal(t, 75.0, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, "gemini", cfg.AI.DefaultProvider)
	assert.Equal(t, []string{"openai", "ollama"}, cfg.AI.Fallbacks)
}
