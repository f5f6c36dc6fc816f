package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Server
	ServerPort      int   `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// Gemini
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	EmbedModel   string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gemini-2.0-flash"`

	// Retrieval
	SearchTopK           int  `envconfig:"SEARCH_TOP_K" default:"5"`
	IngestionConcurrency int  `envconfig:"INGESTION_CONCURRENCY" default:"4"`
	PersistIndex         bool `envconfig:"PERSIST_INDEX" default:"true"`

	// Conversation
	GenerationTimeoutSeconds int `envconfig:"GENERATION_TIMEOUT_SECONDS" default:"60"`
	SessionTTLMinutes        int `envconfig:"SESSION_TTL_MINUTES" default:"60"`

	// Storage
	DataDir      string `envconfig:"DATA_DIR" default:"./data"`
	IndexDir     string `envconfig:"INDEX_DIR" default:"./data/index"`
	ChatLogDB    string `envconfig:"CHAT_LOG_DB" default:"./data/chat_logs.db"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"./data/logs/query.log"`
}

func Load() (*Config, error) {
	// Env vars may already be set in the shell; a missing .env is fine.
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
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("%w: SEARCH_TOP_K must be positive", ErrMissingRequired)
	}
	if c.IngestionConcurrency <= 0 {
		c.IngestionConcurrency = 1
	}
	return nil
}

func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
