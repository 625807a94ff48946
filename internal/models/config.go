package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Operator credentials for the HTTP API
	Auth AuthConfig `yaml:"auth"`

	// Ledger file loaded at startup
	LedgerPath string `yaml:"ledger_path"`

	// Upload queue
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Engine              string  `yaml:"engine"`               // "tesseract" or "gosseract"
	Language            string  `yaml:"language"`             // OCR language (default: "eng")
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // below this, escalate to vision (default: 60)
	MaxConcurrent       int     `yaml:"max_concurrent"`       // local OCR slots (default: NumCPU)
	ArtifactDir         string  `yaml:"artifact_dir"`         // preprocessed images, deleted after each run
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	// OpenAI
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Ollama (local)
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "ollama"

	// Providers tried after the default one, in order
	Fallbacks []string `yaml:"fallbacks"`

	// Vision calls per second across the process
	VisionRate  float64 `yaml:"vision_rate"`
	VisionBurst int     `yaml:"vision_burst"`

	// Cross-check heuristic fields with a text model
	FieldExtraction bool `yaml:"field_extraction"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o-mini"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // Default: "http://localhost:11434"
	Model   string `yaml:"model"`    // e.g., "llava"
}

// AuthConfig holds the JWT secret and the operator account.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTL     string `yaml:"token_ttl"` // Go duration, default 24h
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.OCR.Engine == "" {
		c.OCR.Engine = "tesseract"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.OCR.ConfidenceThreshold == 0 {
		c.OCR.ConfidenceThreshold = 60
	}
	if c.AI.VisionRate == 0 {
		c.AI.VisionRate = 2
	}
	if c.AI.VisionBurst == 0 {
		c.AI.VisionBurst = 1
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.QueueSize == 0 {
		c.QueueSize = 32
	}
}
