package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfiguration marks a configuration the server must refuse to
// start with. It is fatal at startup, never handled at runtime.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	Addr string `envconfig:"VRAG_ADDR" default:":8765"`

	// SharedSecret is the single password every client authenticates with.
	SharedSecret string `envconfig:"VRAG_SECRET" default:"changeme123"`

	IndexBackend   string `envconfig:"VRAG_INDEX_BACKEND" default:"sqlite"` // sqlite, weaviate or memory
	IndexPath      string `envconfig:"VRAG_INDEX_PATH" default:"data/index.db"`
	WeaviateHost   string `envconfig:"VRAG_WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"VRAG_WEAVIATE_SCHEME" default:"http"`

	ChunkSize            int `envconfig:"VRAG_CHUNK_SIZE" default:"500"`
	ChunkOverlap         int `envconfig:"VRAG_CHUNK_OVERLAP" default:"50"`
	TopKResults          int `envconfig:"VRAG_TOP_K_RESULTS" default:"3"`
	MaxConversationTurns int `envconfig:"VRAG_MAX_CONVERSATION_TURNS" default:"5"`

	OllamaURL         string  `envconfig:"VRAG_OLLAMA_URL" default:"http://localhost:11434"`
	LLMModel          string  `envconfig:"VRAG_LLM_MODEL" default:"llama3.2"`
	LLMTemperature    float64 `envconfig:"VRAG_LLM_TEMPERATURE" default:"0.7"`
	LLMMaxTokens      int     `envconfig:"VRAG_LLM_MAX_TOKENS" default:"2048"`
	LLMTimeoutSeconds int     `envconfig:"VRAG_LLM_TIMEOUT_SECONDS" default:"120"`

	EmbedProvider string `envconfig:"VRAG_EMBED_PROVIDER" default:"ollama"` // ollama or gemini
	EmbedModel    string `envconfig:"VRAG_EMBED_MODEL" default:"nomic-embed-text"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`

	// RerankProvider enables the optional rerank stage ("jina" or "cohere").
	// Empty disables reranking.
	RerankProvider string `envconfig:"VRAG_RERANK_PROVIDER"`
	RerankAPIKey   string `envconfig:"RERANK_API_KEY"`

	MaxUploadSizeMB int64  `envconfig:"VRAG_MAX_UPLOAD_SIZE_MB" default:"50"`
	QueryLogPath    string `envconfig:"VRAG_QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SharedSecret == "" {
		return fmt.Errorf("%w: VRAG_SECRET must not be empty", ErrInvalidConfiguration)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: VRAG_CHUNK_SIZE must be positive", ErrInvalidConfiguration)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: VRAG_CHUNK_OVERLAP must be in [0, chunk size)", ErrInvalidConfiguration)
	}
	if c.TopKResults <= 0 {
		return fmt.Errorf("%w: VRAG_TOP_K_RESULTS must be positive", ErrInvalidConfiguration)
	}
	if c.MaxConversationTurns <= 0 {
		return fmt.Errorf("%w: VRAG_MAX_CONVERSATION_TURNS must be positive", ErrInvalidConfiguration)
	}
	switch c.IndexBackend {
	case "sqlite", "weaviate", "memory":
	default:
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidConfiguration, c.IndexBackend)
	}
	switch c.EmbedProvider {
	case "ollama":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini embedder", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown embed provider %q", ErrInvalidConfiguration, c.EmbedProvider)
	}
	return nil
}
