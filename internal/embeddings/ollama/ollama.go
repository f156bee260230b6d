// Package ollama embeds text through a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/ndsh/metasearch/internal/embeddings"
)

// DefaultURL is used when no base URL is configured.
const DefaultURL = "http://localhost:11434"

// Provider calls the Ollama embeddings API. Batches fan out over a bounded
// worker pool since the endpoint embeds one prompt per request.
type Provider struct {
	client *resty.Client
	model  string
	pool   *ants.Pool
}

var _ embeddings.Provider = (*Provider)(nil)

// New creates a Provider for model served at baseURL using up to workers
// concurrent requests for batch embedding.
func New(baseURL, model string, workers int) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("ollama: worker pool: %w", err)
	}

	c := resty.New().
		SetBaseURL(normalizeURL(baseURL)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &Provider{client: c, model: model, pool: pool}, nil
}

func normalizeURL(base string) string {
	if base == "" {
		base = DefaultURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

// Embed generates a dense vector for text. Blank text yields a nil vector,
// which ranks with score 0.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&embedRequest{Model: p.model, Prompt: text}).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}

	var er embedResponse
	if resp.StatusCode() != http.StatusOK {
		if json.Unmarshal(resp.Body(), &er) == nil && er.Error != "" {
			return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode(), er.Error)
		}
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), &er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if er.Error != "" {
		return nil, fmt.Errorf("ollama embeddings error: %s", er.Error)
	}

	vec := make([]float32, len(er.Embedding))
	for i, v := range er.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently, preserving order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embeddings.EmbedConcurrently(ctx, p.pool, texts, p.Embed)
}

// HealthPing implements health.HealthPinger for the Ollama embedder.
// It checks /api/tags for the configured model's presence.
func (p *Provider) HealthPing(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return err
	}
	want := baseModelName(p.model)
	for _, m := range data.Models {
		if baseModelName(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found", want)
}

// Close releases the batch worker pool.
func (p *Provider) Close() error {
	p.pool.Release()
	return nil
}

func baseModelName(name string) string {
	return strings.Split(name, ":")[0]
}
