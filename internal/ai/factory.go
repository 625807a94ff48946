package ai

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

// CreateProvider creates the named AI provider from config. modelName
// overrides the configured model when set.
func CreateProvider(cfg models.AIConfig, providerName, modelName string) (Provider, error) {
	switch providerName {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai: missing api key")
		}
		model := modelName
		if model == "" {
			model = cfg.OpenAI.Model
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, model), nil

	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini: missing api key")
		}
		model := modelName
		if model == "" {
			model = cfg.Gemini.Model
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, model), nil

	case "ollama":
		if cfg.Ollama.BaseURL == "" {
			return nil, fmt.Errorf("ollama: missing base url")
		}
		model := modelName
		if model == "" {
			model = cfg.Ollama.Model
		}
		return NewOllamaProvider(cfg.Ollama.BaseURL, model), nil

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// BuildChain creates the default provider followed by the configured
// fallbacks. Providers that cannot be built are logged and skipped. It
// returns nil when nothing is usable, which callers treat as "AI disabled".
func BuildChain(cfg models.AIConfig, log logrus.FieldLogger) Provider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	names := make([]string, 0, 1+len(cfg.Fallbacks))
	if cfg.DefaultProvider != "" {
		names = append(names, cfg.DefaultProvider)
	}
	names = append(names, cfg.Fallbacks...)

	seen := make(map[string]bool)
	var providers []Provider
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, err := CreateProvider(cfg, name, "")
		if err != nil {
			log.WithError(err).WithField("provider", name).Warn("AI provider unavailable")
			continue
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		return nil
	case 1:
		return providers[0]
	default:
		return NewFallbackProvider(log, providers...)
	}
}
