package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// LoadConfig reads the YAML config at path, applies environment overrides and
// fills defaults. A missing file is not an error: the service can run from
// environment variables alone.
func LoadConfig(path string) (*models.Config, error) {
	var config models.Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&config)
	config.ApplyDefaults()
	return &config, nil
}

// applyEnv overrides config values with environment variables if present.
func applyEnv(config *models.Config) {
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}

	// OCR
	if engine := os.Getenv("OCR_ENGINE"); engine != "" {
		config.OCR.Engine = engine
	}
	if lang := os.Getenv("OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}
	if t := os.Getenv("OCR_CONFIDENCE_THRESHOLD"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			config.OCR.ConfidenceThreshold = v
		}
	}

	// AI
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.AI.Ollama.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if fallbacks := os.Getenv("AI_FALLBACKS"); fallbacks != "" {
		config.AI.Fallbacks = splitList(fallbacks)
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if os.Getenv("AI_FIELD_EXTRACTION") == "true" {
		config.AI.FieldExtraction = true
	}

	// Auth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if user := os.Getenv("ADMIN_USERNAME"); user != "" {
		config.Auth.Username = user
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Auth.PasswordHash = hash
	}

	if path := os.Getenv("LEDGER_PATH"); path != "" {
		config.LedgerPath = path
	}
	if n := os.Getenv("WORKERS"); n != "" {
		fmt.Sscanf(n, "%d", &config.Workers)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
