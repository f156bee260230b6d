package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndsh/metasearch/internal/model"
)

type countingProvider struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (p *countingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = p.Embed(ctx, text)
	}
	return out, nil
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]string{"identifier", "title", "abstract"}, []model.Row{
		{"identifier": "a1", "title": "Rain", "abstract": "rain data"},
		{"identifier": "a2", "title": "Temp", "abstract": "temperature data"},
		{"identifier": "a3", "title": "Snow", "abstract": nil},
	})
	require.NoError(t, err)
	return tbl
}

func TestNewTable_ColumnOrder(t *testing.T) {
	tbl, err := NewTable([]string{"b", "a"}, []model.Row{
		{"a": 1, "b": 2, "z": 3, "c": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "z"}, tbl.Columns())
	assert.True(t, tbl.HasColumn("z"))
	assert.False(t, tbl.HasColumn("missing"))
}

func TestNewTable_DuplicateColumn(t *testing.T) {
	_, err := NewTable([]string{"a", "a"}, nil)
	assert.Error(t, err)
}

func TestNewTable_PromotesEmbeddingColumn(t *testing.T) {
	tbl, err := NewTable([]string{"abstract", "abstract_emb"}, []model.Row{
		{"abstract": "x", "abstract_emb": []any{1.0, 0.0}},
		{"abstract": "y", "abstract_emb": "[0, 1]"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"abstract"}, tbl.Columns())
	ec, ok := tbl.Embedding("abstract")
	require.True(t, ok)
	assert.Equal(t, "abstract_emb", ec.Name())
	assert.Equal(t, []float32{0, 1}, ec.At(1))
}

func TestNewTable_RejectsTextShadowedByEmbedding(t *testing.T) {
	_, err := NewTable([]string{"abstract", "abstract_emb"}, []model.Row{
		{"abstract": "x", "abstract_emb": []any{1.0, 0.0}},
		{"abstract": "y", "abstract_emb": "not a vector"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abstract_emb")
}

func TestNewTable_KeepsEmbSuffixWithoutSource(t *testing.T) {
	tbl, err := NewTable([]string{"title", "notes_emb"}, []model.Row{
		{"title": "x", "notes_emb": "free text"},
	})
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("notes_emb"))
	assert.Empty(t, tbl.EmbeddedColumns())
}

func TestEnsureEmbedded_Idempotent(t *testing.T) {
	tbl := sampleTable(t)
	p := &countingProvider{}
	ctx := context.Background()

	first, err := tbl.EnsureEmbedded(ctx, "abstract", p)
	require.NoError(t, err)
	second, err := tbl.EnsureEmbedded(ctx, "abstract", p)
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load())
	require.Equal(t, first.Len(), second.Len())
	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, first.At(i), second.At(i))
	}
	// nil cell embeds as empty text
	assert.Equal(t, []float32{0, 1}, first.At(2))
	assert.Equal(t, []string{"abstract"}, tbl.EmbeddedColumns())
}

func TestEnsureEmbedded_UnknownColumn(t *testing.T) {
	tbl := sampleTable(t)
	p := &countingProvider{}

	_, err := tbl.EnsureEmbedded(context.Background(), "nonexistent_column", p)
	assert.ErrorIs(t, err, model.ErrColumnNotFound)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Empty(t, tbl.EmbeddedColumns())
	assert.NotContains(t, tbl.Materialize(0), "nonexistent_column_emb")
}

func TestEnsureEmbedded_FailureLeavesTableUnchanged(t *testing.T) {
	tbl := sampleTable(t)
	boom := errors.New("boom")
	p := &countingProvider{err: boom}

	_, err := tbl.EnsureEmbedded(context.Background(), "abstract", p)
	assert.ErrorIs(t, err, model.ErrInference)
	assert.ErrorIs(t, err, boom)
	_, ok := tbl.Embedding("abstract")
	assert.False(t, ok)
}

func TestEnsureEmbedded_ConcurrentFirstAccessEmbedsOnce(t *testing.T) {
	tbl := sampleTable(t)
	p := &countingProvider{delay: 20 * time.Millisecond}

	var wg sync.WaitGroup
	results := make([]*EmbeddingColumn, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ec, err := tbl.EnsureEmbedded(context.Background(), "abstract", p)
			assert.NoError(t, err)
			results[i] = ec
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, ec := range results {
		assert.Same(t, results[0], ec)
	}
}

func TestAttach(t *testing.T) {
	tbl := sampleTable(t)

	assert.ErrorIs(t, tbl.Attach("missing", nil), model.ErrColumnNotFound)
	assert.Error(t, tbl.Attach("title", [][]float32{{1}}))
	require.NoError(t, tbl.Attach("title", [][]float32{{1}, {2}, {3}}))
	assert.Error(t, tbl.Attach("title", [][]float32{{1}, {2}, {3}}))

	row := tbl.Materialize(1)
	assert.Equal(t, []float32{2}, row["title_emb"])
	assert.Equal(t, "a2", row["identifier"])
}

func TestCheckDimensions(t *testing.T) {
	tbl := sampleTable(t)
	assert.NoError(t, tbl.CheckDimensions(384))

	require.NoError(t, tbl.Attach("title", [][]float32{{1, 0}, nil, {0, 1}}))
	assert.NoError(t, tbl.CheckDimensions(2))
	assert.NoError(t, tbl.CheckDimensions(0))

	err := tbl.CheckDimensions(384)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "title_emb")
}

func TestMaterialize_DoesNotAliasRows(t *testing.T) {
	tbl := sampleTable(t)
	row := tbl.Materialize(0)
	row["identifier"] = "changed"
	assert.Equal(t, "a1", tbl.Materialize(0)["identifier"])
}

func TestColumnInfoAndHealth(t *testing.T) {
	tbl := sampleTable(t)
	_, err := tbl.EnsureEmbedded(context.Background(), "title", &countingProvider{})
	require.NoError(t, err)

	assert.Equal(t, []model.ColumnInfo{
		{Name: "identifier"},
		{Name: "title", Embedded: true},
		{Name: "abstract"},
	}, tbl.ColumnInfo())
	assert.NoError(t, tbl.HealthPing(context.Background()))

	empty, err := NewTable(nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, empty.HealthPing(context.Background()), ErrEmptyCatalog)
}

func TestText(t *testing.T) {
	tbl, err := NewTable(nil, []model.Row{{"n": 42.5, "s": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "42.5", tbl.Text(0, "n"))
	assert.Equal(t, "x", tbl.Text(0, "s"))
	assert.Equal(t, "", tbl.Text(0, "missing"))
}

func TestToVector(t *testing.T) {
	cases := []struct {
		in   any
		want []float32
		ok   bool
	}{
		{[]any{1.0, 2.0}, []float32{1, 2}, true},
		{[]float64{0.5}, []float32{0.5}, true},
		{"[1, 2.5]", []float32{1, 2.5}, true},
		{"{1,2}", []float32{1, 2}, true},
		{[]byte("[3]"), []float32{3}, true},
		{"rain", nil, false},
		{[]any{"a"}, nil, false},
		{42, nil, false},
	}
	for _, c := range cases {
		got, ok := ToVector(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		if c.ok {
			assert.Equal(t, c.want, got)
		}
	}
}
