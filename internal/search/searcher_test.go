package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/embeddings/hash"
	"github.com/ndsh/metasearch/internal/model"
)

func newTable(t *testing.T) *catalog.Table {
	t.Helper()
	tbl, err := catalog.NewTable([]string{"identifier", "title", "abstract"}, []model.Row{
		{"identifier": "a1", "title": "Rainfall", "abstract": "rain data"},
		{"identifier": "a2", "title": "Temperature", "abstract": "temperature data"},
		{"identifier": "a3", "title": "Winter", "abstract": "rain and snow data"},
	})
	require.NoError(t, err)
	return tbl
}

func newSearcher(t *testing.T) *Searcher {
	t.Helper()
	p, err := hash.New(384)
	require.NoError(t, err)
	s, err := New(newTable(t), p, "hash-384", zerolog.Nop())
	require.NoError(t, err)
	return s
}

func identifiers(hits []Hit) []any {
	out := make([]any, len(hits))
	for i, h := range hits {
		out[i] = h.Row["identifier"]
	}
	return out
}

// constProvider maps every text to the same vector.
type constProvider struct {
	vec []float32
	err error
}

func (p constProvider) Embed(context.Context, string) ([]float32, error) {
	return p.vec, p.err
}

func (p constProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = p.vec
	}
	return out, nil
}

func TestNew_RequiresDependencies(t *testing.T) {
	p, _ := hash.New(8)
	_, err := New(nil, p, "m", zerolog.Nop())
	assert.Error(t, err)
	_, err = New(newTable(t), nil, "m", zerolog.Nop())
	assert.Error(t, err)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	s := newSearcher(t)

	hits, err := s.Search(context.Background(), "rain", "abstract", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, []any{"a1", "a3"}, identifiers(hits))
	assert.InDelta(t, 1/math.Sqrt2, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)
	assert.Equal(t, hits[0].Score, hits[0].Row[model.ScoresField])

	emb, ok := hits[0].Row["abstract_emb"].([]float32)
	require.True(t, ok)
	assert.Len(t, emb, 384)
}

func TestSearch_TopKLargerThanTable(t *testing.T) {
	s := newSearcher(t)

	hits, err := s.Search(context.Background(), "rain", "abstract", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []any{"a1", "a3", "a2"}, identifiers(hits))
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearch_SelfMatchScoresOne(t *testing.T) {
	s := newSearcher(t)

	hits, err := s.Search(context.Background(), "temperature data", "abstract", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a2", hits[0].Row["identifier"])
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSearch_UnknownColumn(t *testing.T) {
	s := newSearcher(t)

	_, err := s.Search(context.Background(), "rain", "nonexistent", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrColumnNotFound))

	for _, c := range s.Columns() {
		assert.NotEqual(t, "nonexistent", c.Name)
	}
	_, ok := s.Table().Embedding("nonexistent")
	assert.False(t, ok)
}

func TestSearch_InvalidTopK(t *testing.T) {
	s := newSearcher(t)

	_, err := s.Search(context.Background(), "rain", "abstract", 0)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestSearch_EmbedsColumnOnce(t *testing.T) {
	s := newSearcher(t)

	first, err := s.Search(context.Background(), "rain", "title", 3)
	require.NoError(t, err)
	ec, ok := s.Table().Embedding("title")
	require.True(t, ok)

	second, err := s.Search(context.Background(), "rain", "title", 3)
	require.NoError(t, err)
	again, _ := s.Table().Embedding("title")
	assert.Same(t, ec, again)
	assert.Equal(t, identifiers(first), identifiers(second))
}

func TestSearch_TiesKeepTableOrder(t *testing.T) {
	s, err := New(newTable(t), constProvider{vec: []float32{1, 1}}, "const", zerolog.Nop())
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "anything", "abstract", 3)
	require.NoError(t, err)
	assert.Equal(t, []any{"a1", "a2", "a3"}, identifiers(hits))
}

func TestSearch_ZeroVectorsScoreZero(t *testing.T) {
	s, err := New(newTable(t), constProvider{vec: []float32{0, 0}}, "zero", zerolog.Nop())
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "", "abstract", 3)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, 0.0, h.Score)
	}
}

func TestSearch_InferenceFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	s, err := New(newTable(t), constProvider{err: boom}, "broken", zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "rain", "abstract", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInference))
	assert.True(t, errors.Is(err, boom))

	_, ok := s.Table().Embedding("abstract")
	assert.False(t, ok)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	tbl := newTable(t)
	require.NoError(t, tbl.Attach("abstract", [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}))
	p, err := hash.New(384)
	require.NoError(t, err)
	s, err := New(tbl, p, "hash-384", zerolog.Nop())
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "rain data", "abstract", 2)
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.True(t, errors.Is(err, model.ErrInference))
	assert.Contains(t, err.Error(), "abstract_emb")
}

func TestSearch_BlankCellsScoreZero(t *testing.T) {
	tbl := newTable(t)
	p, err := hash.New(384)
	require.NoError(t, err)
	rain, err := p.Embed(context.Background(), "rain data")
	require.NoError(t, err)
	require.NoError(t, tbl.Attach("abstract", [][]float32{nil, rain, nil}))
	s, err := New(tbl, p, "hash-384", zerolog.Nop())
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "rain data", "abstract", 3)
	require.NoError(t, err)
	assert.Equal(t, []any{"a2", "a1", "a3"}, identifiers(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 0.0, hits[1].Score)
}

func TestProject(t *testing.T) {
	s := newSearcher(t)
	hits, err := s.Search(context.Background(), "rain", "abstract", 2)
	require.NoError(t, err)

	rows, err := Project(hits, []string{"title", "scores"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Len(t, r, 2)
		assert.Contains(t, r, "title")
		assert.Contains(t, r, "scores")
	}
	assert.Equal(t, "Rainfall", rows[0]["title"])

	_, err = Project(hits, []string{"title", "nope"})
	assert.True(t, errors.Is(err, model.ErrColumnNotFound))
}

func TestCheckProjection(t *testing.T) {
	s := newSearcher(t)
	_, err := s.Search(context.Background(), "rain", "abstract", 1)
	require.NoError(t, err)

	assert.NoError(t, s.CheckProjection([]string{"title", "scores", "abstract_emb"}))
	assert.True(t, errors.Is(s.CheckProjection([]string{"title_emb"}), model.ErrColumnNotFound))
	assert.True(t, errors.Is(s.CheckProjection([]string{"nope"}), model.ErrColumnNotFound))
}

func TestRows(t *testing.T) {
	s := newSearcher(t)
	hits, err := s.Search(context.Background(), "rain", "abstract", 3)
	require.NoError(t, err)

	rows := Rows(hits)
	require.Len(t, rows, 3)
	assert.Equal(t, "a1", rows[0]["identifier"])
	assert.Contains(t, rows[0], "abstract_emb")
}
