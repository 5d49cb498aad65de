package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// Optional: tenant metadata survives restarts when set. Vector indices never do.
	DatabaseURL  string        `envconfig:"DATABASE_URL"`
	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"10s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"chatbot-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	GroqAPIKey          string `envconfig:"GROQ_API_KEY"`
	GoogleAPIKey        string `envconfig:"GOOGLE_API_KEY"`
	HuggingFaceAPIToken string `envconfig:"HUGGINGFACE_API_TOKEN"`
	OllamaBaseURL       string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel         string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`
	EnableOllama        bool   `envconfig:"ENABLE_OLLAMA" default:"false"`

	EmbeddingProvider    string  `envconfig:"EMBEDDING_PROVIDER" default:"huggingface-default"`
	ChunkSize            int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap         int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	MMRK                 int     `envconfig:"MMR_K" default:"5"`
	MMRFetchK            int     `envconfig:"MMR_FETCH_K" default:"20"`
	MMRLambda            float64 `envconfig:"MMR_LAMBDA_MULT" default:"0.5"`
	MaxContextLength     int     `envconfig:"MAX_CONTEXT_LENGTH" default:"4000"`
	VectorStoreCacheSize int     `envconfig:"VECTOR_STORE_CACHE_SIZE" default:"10"`

	MaxFileSizeMB int `envconfig:"MAX_FILE_SIZE_MB" default:"50"`
	MaxFiles      int `envconfig:"MAX_FILES" default:"10"`
	MaxURLs       int `envconfig:"MAX_URLS" default:"20"`

	UserAgent       string        `envconfig:"USER_AGENT" default:"ChatBot-RAG"`
	WebFetchTimeout time.Duration `envconfig:"WEB_FETCH_TIMEOUT" default:"20s"`
	WebFetchRPS     float64       `envconfig:"WEB_FETCH_RPS" default:"2"`
	PDFToTextPath   string        `envconfig:"PDFTOTEXT_PATH" default:"pdftotext"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CHATBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.VectorStoreCacheSize < 1 {
		return nil, fmt.Errorf("VECTOR_STORE_CACHE_SIZE must be at least 1, got %d", cfg.VectorStoreCacheSize)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// TenantDefaults returns the deployment-wide defaults tenants fall back to.
func (c *Config) TenantDefaults() domain.TenantConfig {
	return domain.TenantConfig{
		EmbeddingProvider: c.EmbeddingProvider,
		ChunkSize:         c.ChunkSize,
		ChunkOverlap:      c.ChunkOverlap,
		MMRK:              c.MMRK,
		MMRFetchK:         c.MMRFetchK,
		MMRLambda:         c.MMRLambda,
		MaxContextLength:  c.MaxContextLength,
	}
}

// MaxFileSizeBytes converts the per-file upload cap to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
