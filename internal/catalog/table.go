// Package catalog holds the in-memory record table and its lazily populated
// embedding columns.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ndsh/metasearch/internal/embeddings"
	"github.com/ndsh/metasearch/internal/model"
)

var (
	// ErrEmptyCatalog is reported by HealthPing when the table has no rows.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrDimensionMismatch means stored vectors do not match the provider's output.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbeddingColumn is the derived vector column for one source column.
// It is immutable once attached to a Table.
type EmbeddingColumn struct {
	source  string
	vectors [][]float32
}

// Source returns the text column the vectors were computed from.
func (c *EmbeddingColumn) Source() string { return c.source }

// Name returns the derived column name, e.g. "abstract_emb".
func (c *EmbeddingColumn) Name() string { return model.EmbeddingColumnName(c.source) }

// Len returns the number of vectors (one per table row).
func (c *EmbeddingColumn) Len() int { return len(c.vectors) }

// At returns the vector for row i.
func (c *EmbeddingColumn) At(i int) []float32 { return c.vectors[i] }

// checkDimensions reports the first non-empty vector whose length is not dim.
// Empty vectors stand for blank cells and are allowed.
func (c *EmbeddingColumn) checkDimensions(dim int) error {
	for i, v := range c.vectors {
		if len(v) != 0 && len(v) != dim {
			return fmt.Errorf("%w: %s row %d has %d dimensions, provider produces %d",
				ErrDimensionMismatch, c.Name(), i, len(v), dim)
		}
	}
	return nil
}

// Table is an ordered, read-only set of rows plus embedding columns that are
// added at most once per source column for the lifetime of the process.
type Table struct {
	columns []string
	colSet  map[string]struct{}
	rows    []model.Row

	mu       sync.RWMutex
	embedded map[string]*EmbeddingColumn
	order    []string
	locks    map[string]*sync.Mutex
}

// NewTable builds a Table from rows. columns gives the column order; keys
// found in rows but not listed are appended in sorted order.
// A column named "<c>_emb" holding numeric arrays, where "<c>" is also a
// column, is promoted to the embedding column of "<c>". If any of its cells is
// not a vector the table is rejected, since embedding "<c>" would shadow it.
func NewTable(columns []string, rows []model.Row) (*Table, error) {
	t := &Table{
		colSet:   make(map[string]struct{}),
		rows:     make([]model.Row, len(rows)),
		embedded: make(map[string]*EmbeddingColumn),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, c := range columns {
		if _, ok := t.colSet[c]; ok {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		t.colSet[c] = struct{}{}
		t.columns = append(t.columns, c)
	}
	var extra []string
	for i, r := range rows {
		cp := make(model.Row, len(r))
		for k, v := range r {
			if _, ok := t.colSet[k]; !ok {
				t.colSet[k] = struct{}{}
				extra = append(extra, k)
			}
			cp[k] = v
		}
		t.rows[i] = cp
	}
	sort.Strings(extra)
	t.columns = append(t.columns, extra...)

	if err := t.promoteEmbeddingColumns(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) promoteEmbeddingColumns() error {
	var keep []string
	for _, c := range t.columns {
		src, ok := strings.CutSuffix(c, model.EmbeddingSuffix)
		if !ok || src == "" {
			keep = append(keep, c)
			continue
		}
		if _, has := t.colSet[src]; !has {
			keep = append(keep, c)
			continue
		}
		vecs := make([][]float32, len(t.rows))
		for i, r := range t.rows {
			v, ok := ToVector(r[c])
			if !ok {
				return fmt.Errorf("column %q collides with the embedding column of %q: row %d is not a vector", c, src, i)
			}
			vecs[i] = v
		}
		for _, r := range t.rows {
			delete(r, c)
		}
		delete(t.colSet, c)
		t.embedded[src] = &EmbeddingColumn{source: src, vectors: vecs}
		t.order = append(t.order, src)
	}
	t.columns = keep
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the source columns in table order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name is a source column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colSet[name]
	return ok
}

// Embedding returns the embedding column for source column, if present.
func (t *Table) Embedding(column string) (*EmbeddingColumn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ec, ok := t.embedded[column]
	return ec, ok
}

// EmbeddedColumns returns the source columns that currently have embeddings,
// in the order they were added.
func (t *Table) EmbeddedColumns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Text returns the cell as text for embedding. Missing and nil cells are "".
func (t *Table) Text(row int, column string) string {
	v, ok := t.rows[row][column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Attach installs precomputed vectors for column. It fails if the column is
// unknown, the vector count differs from the row count, or the column is
// already embedded.
func (t *Table) Attach(column string, vectors [][]float32) error {
	if !t.HasColumn(column) {
		return fmt.Errorf("%w: %s", model.ErrColumnNotFound, column)
	}
	if len(vectors) != len(t.rows) {
		return fmt.Errorf("embedding column %s has %d vectors for %d rows", column, len(vectors), len(t.rows))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.embedded[column]; ok {
		return fmt.Errorf("embedding column %s already present", model.EmbeddingColumnName(column))
	}
	t.embedded[column] = &EmbeddingColumn{source: column, vectors: vectors}
	t.order = append(t.order, column)
	return nil
}

// CheckDimensions verifies that every stored embedding has dim components.
// A dim below 1 disables the check.
func (t *Table) CheckDimensions(dim int) error {
	if dim < 1 {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.order {
		if err := t.embedded[c].checkDimensions(dim); err != nil {
			return err
		}
	}
	return nil
}

// EnsureEmbedded returns the embedding column for column, computing it with
// provider on first use. Concurrent first calls for the same column compute it
// once; other callers wait and share the result. On failure nothing is attached.
func (t *Table) EnsureEmbedded(ctx context.Context, column string, provider embeddings.Provider) (*EmbeddingColumn, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", model.ErrColumnNotFound, column)
	}
	if ec, ok := t.Embedding(column); ok {
		return ec, nil
	}

	lock := t.columnLock(column)
	lock.Lock()
	defer lock.Unlock()

	if ec, ok := t.Embedding(column); ok {
		return ec, nil
	}

	texts := make([]string, len(t.rows))
	for i := range t.rows {
		texts[i] = t.Text(i, column)
	}
	vecs, err := provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed column %s: %w: %w", column, model.ErrInference, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed column %s: %w: got %d vectors for %d rows", column, model.ErrInference, len(vecs), len(texts))
	}

	ec := &EmbeddingColumn{source: column, vectors: vecs}
	t.mu.Lock()
	t.embedded[column] = ec
	t.order = append(t.order, column)
	t.mu.Unlock()
	return ec, nil
}

func (t *Table) columnLock(column string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[column]
	if !ok {
		l = &sync.Mutex{}
		t.locks[column] = l
	}
	return l
}

// Materialize returns a copy of row i with every embedding column added
// under its "<column>_emb" name.
func (t *Table) Materialize(i int) model.Row {
	src := t.rows[i]
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(model.Row, len(src)+len(t.order)+1)
	for k, v := range src {
		out[k] = v
	}
	for _, c := range t.order {
		out[model.EmbeddingColumnName(c)] = t.embedded[c].vectors[i]
	}
	return out
}

// ColumnInfo lists the source columns and whether each has embeddings.
func (t *Table) ColumnInfo() []model.ColumnInfo {
	out := make([]model.ColumnInfo, 0, len(t.columns))
	for _, c := range t.columns {
		_, ok := t.Embedding(c)
		out = append(out, model.ColumnInfo{Name: c, Embedded: ok})
	}
	return out
}

// HealthPing implements health.HealthPinger.
func (t *Table) HealthPing(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Len() == 0 {
		return ErrEmptyCatalog
	}
	return nil
}
