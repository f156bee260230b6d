// Package search ranks catalog rows against a query by embedding similarity.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/embeddings"
	"github.com/ndsh/metasearch/internal/model"
)

// Hit is one ranked row.
type Hit struct {
	Index int       // position in the catalog table
	Score float64   // cosine similarity, higher is closer
	Row   model.Row // all columns, computed embedding columns and "scores"
}

// Searcher runs brute-force cosine search over a catalog table.
type Searcher struct {
	table    *catalog.Table
	provider embeddings.Provider
	model    string
	log      zerolog.Logger
}

// New creates a Searcher over table using provider for all embeddings.
// modelName is reported to clients and does not affect ranking.
func New(table *catalog.Table, provider embeddings.Provider, modelName string, log zerolog.Logger) (*Searcher, error) {
	if table == nil {
		return nil, fmt.Errorf("search: catalog table is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("search: embedding provider is required")
	}
	return &Searcher{table: table, provider: provider, model: modelName, log: log}, nil
}

// ModelName returns the embedding model in use.
func (s *Searcher) ModelName() string { return s.model }

// Columns lists the searchable columns and their embedding state.
func (s *Searcher) Columns() []model.ColumnInfo { return s.table.ColumnInfo() }

// Table exposes the underlying catalog, mainly for health checks.
func (s *Searcher) Table() *catalog.Table { return s.table }

// Search returns the min(k, rows) rows whose column embeddings are most similar
// to query, best first. Equal scores keep table order. The column is embedded
// on first use. Stored vectors whose length differs from the query's are
// reported as model.ErrInference.
func (s *Searcher) Search(ctx context.Context, query, column string, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: topk must be >= 1, got %d", model.ErrValidation, k)
	}
	if !s.table.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", model.ErrColumnNotFound, column)
	}

	_, alreadyEmbedded := s.table.Embedding(column)
	start := time.Now()
	ec, err := s.table.EnsureEmbedded(ctx, column, s.provider)
	if err != nil {
		return nil, err
	}
	if !alreadyEmbedded {
		s.log.Info().
			Str("column", column).
			Int("rows", ec.Len()).
			Dur("took", time.Since(start)).
			Msg("column embedded")
	}

	q, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", model.ErrInference, err)
	}

	scores := make([]float64, ec.Len())
	order := make([]int, ec.Len())
	for i := range order {
		v := ec.At(i)
		// empty vectors are blank cells or a blank query and score 0
		if len(q) != 0 && len(v) != 0 && len(v) != len(q) {
			return nil, fmt.Errorf("%w: query has %d dimensions, %s row %d has %d",
				model.ErrInference, len(q), ec.Name(), i, len(v))
		}
		order[i] = i
		scores[i] = CosineSimilarity(q, v)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for n := 0; n < k; n++ {
		i := order[n]
		row := s.table.Materialize(i)
		row[model.ScoresField] = scores[i]
		hits[n] = Hit{Index: i, Score: scores[i], Row: row}
	}
	return hits, nil
}

// CheckProjection reports model.ErrColumnNotFound for any column a result row
// cannot carry. Valid names are source columns, embedded columns and the
// scores field. Call it after Search so the searched column counts as embedded.
func (s *Searcher) CheckProjection(columns []string) error {
	for _, c := range columns {
		if c == model.ScoresField || s.table.HasColumn(c) {
			continue
		}
		if src, ok := strings.CutSuffix(c, model.EmbeddingSuffix); ok && src != "" {
			if _, embedded := s.table.Embedding(src); embedded {
				continue
			}
		}
		return fmt.Errorf("%w: %s", model.ErrColumnNotFound, c)
	}
	return nil
}

// Rows returns the row of every hit.
func Rows(hits []Hit) []model.Row {
	out := make([]model.Row, len(hits))
	for i, h := range hits {
		out[i] = h.Row
	}
	return out
}

// Project returns each hit's row restricted to exactly columns. A requested
// column absent from a row yields model.ErrColumnNotFound.
func Project(hits []Hit, columns []string) ([]model.Row, error) {
	out := make([]model.Row, len(hits))
	for i, h := range hits {
		row := make(model.Row, len(columns))
		for _, c := range columns {
			v, ok := h.Row[c]
			if !ok {
				return nil, fmt.Errorf("%w: %s", model.ErrColumnNotFound, c)
			}
			row[c] = v
		}
		out[i] = row
	}
	return out, nil
}
