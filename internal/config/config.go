package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Supported embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config holds the configuration for the metasearch service.
// Environment variables are parsed from the METASEARCH_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Catalog snapshot: a file path (.json, .jsonl, .db) or a postgres:// DSN
	SnapshotPath  string `envconfig:"SNAPSHOT_PATH" default:"data/metadata_dataframes/2023-02-18-GMD-metadata.json"`
	SnapshotTable string `envconfig:"SNAPSHOT_TABLE" default:"records"`

	// Precomputed embedding bundle, extracted into ArtifactDir before the catalog loads
	ArtifactArchive string `envconfig:"ARTIFACT_ARCHIVE" default:"data/embedded_dataframes/embedded_dataframes.tar.zst"`
	ArtifactDir     string `envconfig:"ARTIFACT_DIR" default:"data/embedded_dataframes"`

	// Embedding Configuration
	EmbedProvider     string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel        string `envconfig:"EMBED_MODEL" default:"all-minilm"`
	EmbedURL          string `envconfig:"EMBED_URL" default:"http://localhost:11434"`
	EmbedAPIKey       string `envconfig:"EMBED_API_KEY"` // openai only
	EmbedBatchWorkers int    `envconfig:"EMBED_BATCH_WORKERS" default:"4"`
	EmbedDimensions   int    `envconfig:"EMBED_DIMENSIONS" default:"384"`

	// Search defaults applied when a request omits the field
	DefaultColumn string `envconfig:"DEFAULT_COLUMN" default:"abstract"`
	DefaultTopK   int    `envconfig:"DEFAULT_TOPK" default:"5"`

	// Health
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
}

// Validate checks field ranges and normalises the provider name.
func (c *Config) Validate() error {
	c.EmbedProvider = strings.ToLower(strings.TrimSpace(c.EmbedProvider))
	switch c.EmbedProvider {
	case ProviderOllama, ProviderOpenAI, ProviderHash:
	default:
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required")
	}
	if c.DefaultColumn == "" {
		return fmt.Errorf("DEFAULT_COLUMN is required")
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("DEFAULT_TOPK must be >= 1, got %d", c.DefaultTopK)
	}
	if c.EmbedBatchWorkers < 1 {
		return fmt.Errorf("EMBED_BATCH_WORKERS must be >= 1, got %d", c.EmbedBatchWorkers)
	}
	if c.EmbedProvider == ProviderHash && c.EmbedDimensions < 1 {
		return fmt.Errorf("EMBED_DIMENSIONS must be >= 1, got %d", c.EmbedDimensions)
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with METASEARCH_
// Example: METASEARCH_SNAPSHOT_PATH, METASEARCH_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("METASEARCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("snapshot", redactDSN(cfg.SnapshotPath)).
		Str("artifact_archive", cfg.ArtifactArchive).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("embed_batch_workers", cfg.EmbedBatchWorkers).
		Str("default_column", cfg.DefaultColumn).
		Int("default_topk", cfg.DefaultTopK).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
		HTTPPort:    8080,
	}

	cfg.SnapshotPath = "testdata/catalog.json"
	cfg.SnapshotTable = "records"

	cfg.EmbedProvider = ProviderHash
	cfg.EmbedModel = "hash-test"
	cfg.EmbedBatchWorkers = 2
	cfg.EmbedDimensions = 384

	cfg.DefaultColumn = "abstract"
	cfg.DefaultTopK = 5

	cfg.HealthIntervalSeconds = 1
	cfg.HealthProbeTimeoutSeconds = 1
	cfg.BootstrapTimeoutSeconds = 5

	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// redactDSN hides credentials in postgres DSNs before they reach the log.
func redactDSN(s string) string {
	if !strings.HasPrefix(s, "postgres://") && !strings.HasPrefix(s, "postgresql://") {
		return s
	}
	at := strings.LastIndex(s, "@")
	scheme := strings.Index(s, "://") + 3
	if at < scheme {
		return s
	}
	return s[:scheme] + "***" + s[at:]
}
