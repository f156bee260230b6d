package model

// Row is a single catalog record keyed by column name.
type Row map[string]any

// EmbeddingSuffix is appended to a source column name to name its embedding column.
const EmbeddingSuffix = "_emb"

// ScoresField is the field added to every search result row.
const ScoresField = "scores"

// EmbeddingColumnName returns the derived column name holding embeddings of column.
func EmbeddingColumnName(column string) string { return column + EmbeddingSuffix }

// ColumnInfo describes a searchable column for the /columns endpoint.
type ColumnInfo struct {
	Name     string `json:"name"`
	Embedded bool   `json:"embedded"`
}
