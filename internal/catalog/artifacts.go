package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ndsh/metasearch/internal/model"
	"github.com/rs/zerolog"
)

// artifactPattern matches precomputed embedding files, e.g. "abstract_emb.json".
const artifactPattern = "*" + model.EmbeddingSuffix + ".json"

// LoadArtifacts attaches every "<column>_emb.json" file in dir to t. Each file
// holds a JSON array with one numeric array per row. Files for columns the
// table does not have are skipped with a warning; a row-count mismatch is an
// error. A missing dir is not an error. Returns the attached source columns.
func LoadArtifacts(t *Table, dir string, log zerolog.Logger) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, artifactPattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var attached []string
	for _, path := range matches {
		column := strings.TrimSuffix(filepath.Base(path), model.EmbeddingSuffix+".json")
		if !t.HasColumn(column) {
			log.Warn().Str("file", path).Str("column", column).Msg("embedding artifact for unknown column skipped")
			continue
		}
		if _, ok := t.Embedding(column); ok {
			log.Info().Str("column", column).Msg("column already embedded in snapshot; artifact skipped")
			continue
		}
		vecs, err := readVectors(path)
		if err != nil {
			return attached, err
		}
		if err := t.Attach(column, vecs); err != nil {
			return attached, fmt.Errorf("artifact %s: %w", path, err)
		}
		attached = append(attached, column)
		log.Info().Str("column", column).Int("rows", len(vecs)).Msg("embedding artifact loaded")
	}
	return attached, nil
}

func readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var vecs [][]float32
	if err := json.NewDecoder(f).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return vecs, nil
}

// WriteArtifact writes the embedding column of column as "<column>_emb.json"
// into dir, in the format LoadArtifacts reads.
func WriteArtifact(t *Table, column, dir string) (string, error) {
	ec, ok := t.Embedding(column)
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrColumnNotFound, model.EmbeddingColumnName(column))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ec.Name()+".json")
	data, err := json.Marshal(ec.vectors)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
