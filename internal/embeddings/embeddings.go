package embeddings

import "context"

// Provider produces vector representations for text.
// Implementations must be safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Closer is implemented by providers holding worker pools or connections.
type Closer interface {
	Close() error
}
