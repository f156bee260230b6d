package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndsh/metasearch/internal/config"
	emb "github.com/ndsh/metasearch/internal/embeddings"
	"github.com/ndsh/metasearch/internal/embeddings/hash"
	"github.com/ndsh/metasearch/internal/embeddings/ollama"
	"github.com/ndsh/metasearch/internal/embeddings/openai"
)

// NewEmbeddingProvider creates an embedding provider based on config and
// warms it up with a blocking probe embed. A provider that cannot embed at
// startup is returned as an error so the service fails fast. The second
// result is the length of the warmup vector.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (emb.Provider, int, error) {
	var (
		provider emb.Provider
		err      error
	)

	switch cfg.EmbedProvider {
	case "", config.ProviderOllama:
		provider, err = ollama.New(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedBatchWorkers)
	case config.ProviderOpenAI:
		provider, err = openai.New(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedAPIKey)
	case config.ProviderHash:
		provider, err = hash.New(cfg.EmbedDimensions)
	default:
		return nil, 0, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("create %s embedding provider: %w", cfg.EmbedProvider, err)
	}

	warmupTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
	if warmupTimeout <= 0 {
		warmupTimeout = 30 * time.Second
	}
	warmupCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	start := time.Now()
	vec, err := provider.Embed(warmupCtx, "factory-warmup-check")
	if err == nil && len(vec) == 0 {
		err = fmt.Errorf("empty warmup vector")
	}
	if err != nil {
		if c, ok := provider.(emb.Closer); ok {
			_ = c.Close()
		}
		return nil, 0, fmt.Errorf("embedding provider %s/%s warmup: %w", cfg.EmbedProvider, cfg.EmbedModel, err)
	}
	log.Info().
		Str("provider", cfg.EmbedProvider).
		Str("model", ModelName(cfg)).
		Int("dimensions", len(vec)).
		Dur("took", time.Since(start)).
		Msg("embedding provider warmup completed")

	return provider, len(vec), nil
}

// ModelName is the model identifier reported to clients.
func ModelName(cfg *config.Config) string {
	if cfg.EmbedProvider == config.ProviderHash {
		return fmt.Sprintf("hash-%d", cfg.EmbedDimensions)
	}
	return cfg.EmbedModel
}
