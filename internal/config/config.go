// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.asha/config.yaml, or ./config.yaml)
//  3. Default values
//
// Main categories:
//   - AI: provider, model, embedder model
//   - Storage: PostgreSQL connection for the document index and turn audit log
//   - Retrieval: top-k, relevance threshold, diversity cap
//   - Bias: semantic-fallback threshold
//   - Conversation: prompt window size
//   - Serve: HTTP listen address, CORS, rate limiting
//
// Sensitive values (the database password) are masked in MarshalJSON and
// String so the whole config can be logged safely. Validate() runs fail-fast
// range checks with sentinel errors for errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidMinScore indicates the relevance threshold is out of [0,1].
	ErrInvalidMinScore = errors.New("invalid retrieval min score")

	// ErrInvalidWindow indicates the conversation window size is out of range.
	ErrInvalidWindow = errors.New("invalid conversation window")

	// ErrInvalidPromptBudget indicates the prompt character budget is too small.
	ErrInvalidPromptBudget = errors.New("invalid prompt budget")

	// ErrInvalidBiasThreshold indicates the semantic bias threshold is out of [0,1].
	ErrInvalidBiasThreshold = errors.New("invalid bias threshold")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Defaults and bounds.
const (
	// DefaultEmbedderModel outputs 768-dimension vectors, matching the
	// pgvector schema in db/migrations (see knowledge.VectorDimension).
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultTopK is the retrieval result cap per turn.
	DefaultTopK = 5

	// MaxTopK bounds top-k to keep prompts small.
	MaxTopK = 20

	// DefaultMinScore drops weakly-related documents from retrieval so that
	// grounding never includes noise that invites hallucination.
	DefaultMinScore = 0.35

	// DefaultWindowTurns is the number of recent turns included in prompts.
	DefaultWindowTurns = 6

	// MaxWindowTurns bounds the prompt window.
	MaxWindowTurns = 50

	// DefaultPromptBudget is the prompt character budget.
	DefaultPromptBudget = 8000

	// MinPromptBudget keeps room for the persona and the query.
	MinPromptBudget = 1000

	// DefaultBiasThreshold is the cosine similarity above which the semantic
	// bias layer fires when no lexical rule matched.
	DefaultBiasThreshold = 0.62
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; when adding a new
// secret field, update that method too.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`       // "gemini" (default), "ollama", "openai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// Retrieval configuration
	TopK           int     `mapstructure:"top_k" json:"top_k"`
	MinScore       float32 `mapstructure:"min_score" json:"min_score"`
	DiversityLimit int     `mapstructure:"diversity_limit" json:"diversity_limit"` // max hits per identical field value

	// Bias classifier configuration
	BiasThreshold float32 `mapstructure:"bias_threshold" json:"bias_threshold"`

	// Conversation configuration
	WindowTurns  int `mapstructure:"window_turns" json:"window_turns"`
	PromptBudget int `mapstructure:"prompt_budget" json:"prompt_budget"` // characters

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Ingestion data sources
	JobsCSV    string `mapstructure:"jobs_csv" json:"jobs_csv"`
	EventsJSON string `mapstructure:"events_json" json:"events_json"`

	// Serve configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Tracing configuration (optional)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // OTLP HTTP endpoint, host:port
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".asha")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine: run on defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("min_score", DefaultMinScore)
	viper.SetDefault("diversity_limit", 2)
	viper.SetDefault("bias_threshold", DefaultBiasThreshold)
	viper.SetDefault("window_turns", DefaultWindowTurns)
	viper.SetDefault("prompt_budget", DefaultPromptBudget)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "asha")
	viper.SetDefault("postgres_password", "asha_dev_password")
	viper.SetDefault("postgres_db_name", "asha")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("jobs_csv", "data/job_listings.csv")
	viper.SetDefault("events_json", "data/sessions.json")

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "asha")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY / OPENAI_API_KEY are read directly by the Genkit plugins,
// not through Viper; Validate() checks their presence per provider.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "ASHA_PROVIDER")
	mustBind("model_name", "ASHA_MODEL_NAME")
	mustBind("embedder_model", "ASHA_EMBEDDER_MODEL")
	mustBind("ollama_host", "ASHA_OLLAMA_HOST")
	mustBind("listen_addr", "ASHA_LISTEN_ADDR")
	mustBind("cors_origins", "ASHA_CORS_ORIGINS")
	mustBind("trust_proxy", "ASHA_TRUST_PROXY")
	mustBind("jobs_csv", "ASHA_JOBS_CSV")
	mustBind("events_json", "ASHA_EVENTS_JSON")
	mustBind("tracing.enabled", "ASHA_TRACING_ENABLED")
	mustBind("tracing.endpoint", "ASHA_TRACING_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// DatabaseURL returns the postgres:// connection URL built from the
// individual storage fields.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}
