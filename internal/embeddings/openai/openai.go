// Package openai embeds text through any OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	emb "github.com/ndsh/metasearch/internal/embeddings"
)

// Provider wraps a langchaingo embedder.
type Provider struct {
	embedder embeddings.Embedder
}

var _ emb.Provider = (*Provider)(nil)

// New creates a Provider for model at baseURL. A blank token is sent as
// "none" so local OpenAI-compatible servers without auth accept it.
func New(baseURL, model, token string) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	return &Provider{embedder: e}, nil
}

// NewWithEmbedder wraps an existing langchaingo embedder.
func NewWithEmbedder(e embeddings.Embedder) *Provider { return &Provider{embedder: e} }

// Embed generates a vector embedding for a single text string. Blank text
// yields a nil vector without calling the API, which rejects empty input.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return p.embedder.EmbedQuery(ctx, text)
}

// EmbedBatch generates vector embeddings for texts in a batch. Only non-blank
// texts are sent; blank ones keep a nil vector at their index.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	idx := make([]int, 0, len(texts))
	send := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		send = append(send, t)
	}
	if len(send) == 0 {
		return out, nil
	}

	vecs, err := p.embedder.EmbedDocuments(ctx, send)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(send) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d texts", len(vecs), len(send))
	}
	for n, i := range idx {
		out[i] = vecs[n]
	}
	return out, nil
}
