package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/app"
	"github.com/contractorpay/invoice-reconciler/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "HOST", "OCR_ENGINE", "OCR_LANGUAGE", "OCR_CONFIDENCE_THRESHOLD",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_BASE_URL", "AI_PROVIDER", "AI_FALLBACKS",
		"OPENAI_BASE_URL", "OPENAI_MODEL", "GEMINI_MODEL", "AI_FIELD_EXTRACTION",
		"JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD_HASH", "LEDGER_PATH", "WORKERS",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, 32, cfg.QueueSize)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
port: 9000
ocr:
  engine: gosseract
ai:
  default_provider: gemini
  openai:
    model: gpt-4o
`)
	t.Setenv("PORT", "9100")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("AI_FALLBACKS", "gemini, ollama ,")
	t.Setenv("OCR_CONFIDENCE_THRESHOLD", "72.5")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := app.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "gosseract", cfg.OCR.Engine)
	assert.Equal(t, 72.5, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, "openai", cfg.AI.DefaultProvider)
	assert.Equal(t, []string{"gemini", "ollama"}, cfg.AI.Fallbacks)
	assert.Equal(t, "gpt-4o", cfg.AI.OpenAI.Model)
	assert.Equal(t, "s", cfg.Auth.JWTSecret)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "port: [")

	_, err := app.LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestBuild_Minimal(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := &models.Config{}
	cfg.ApplyDefaults()

	a, err := app.Build(context.Background(), cfg, app.Options{}, log)

	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Pipeline)
	assert.Nil(t, a.Store)
	assert.False(t, a.Repo.Available())
	assert.False(t, a.Auth.Enabled())
	assert.Equal(t, "none", a.AIName())
	assert.Equal(t, "tesseract", a.Engine.Name())

	entries, err := a.Ledger.Ledger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestBuild_LedgerAndAI(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := &models.Config{
		LedgerPath: writeFile(t, "ledger.yaml", `
entries:
  - staff_name: Mike Ross
    total_amount: "150.00"
`),
		AI: models.AIConfig{
			DefaultProvider: "openai",
			OpenAI:          models.OpenAIConfig{APIKey: "sk-test"},
		},
	}
	cfg.ApplyDefaults()

	a, err := app.Build(context.Background(), cfg, app.Options{}, log)

	require.NoError(t, err)
	assert.Equal(t, "openai", a.AIName())
	entries, _ := a.Ledger.Ledger(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "Mike Ross", entries[0].StaffName)
}

func TestBuild_PersistenceFallsBackToMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("MINIO_ENDPOINT", "")
	log, _ := test.NewNullLogger()
	cfg := &models.Config{}
	cfg.ApplyDefaults()

	a, err := app.Build(context.Background(), cfg, app.Options{Persistence: true}, log)

	require.NoError(t, err)
	assert.NotNil(t, a.Store)
	assert.False(t, a.Repo.Available())
}

func TestBuild_Errors(t *testing.T) {
	log, _ := test.NewNullLogger()

	tests := []struct {
		name string
		cfg  models.Config
		want string
	}{
		{"missing ledger", models.Config{LedgerPath: "/nonexistent/ledger.yaml"}, "failed to read ledger file"},
		{"bad engine", models.Config{OCR: models.OCRConfig{Engine: "abbyy"}}, "unsupported OCR engine"},
		{"bad ttl", models.Config{Auth: models.AuthConfig{TokenTTL: "forever"}}, "invalid token_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			_, err := app.Build(context.Background(), &cfg, app.Options{}, log)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
