package factory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndsh/metasearch/internal/archive"
	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/catalog/snapshot"
	"github.com/ndsh/metasearch/internal/config"
)

// NewCatalog prepares the record table: it extracts the artifact bundle (if
// present), loads the snapshot and attaches any precomputed embedding columns.
// Preloaded vectors must have dims components, the provider's output length;
// dims below 1 skips that check. Every failure here is fatal for startup.
func NewCatalog(ctx context.Context, cfg *config.Config, dims int, log zerolog.Logger) (*catalog.Table, error) {
	start := time.Now()

	if err := extractArtifacts(cfg, log); err != nil {
		return nil, err
	}

	tbl, err := snapshot.Load(ctx, cfg.SnapshotPath, cfg.SnapshotTable)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}

	var loaded []string
	if cfg.ArtifactDir != "" {
		loaded, err = catalog.LoadArtifacts(tbl, cfg.ArtifactDir, log)
		if err != nil {
			return nil, fmt.Errorf("load embedding artifacts: %w", err)
		}
	}
	if err := tbl.CheckDimensions(dims); err != nil {
		return nil, fmt.Errorf("preloaded embeddings do not match %s: %w", ModelName(cfg), err)
	}

	log.Info().
		Int("rows", tbl.Len()).
		Int("columns", len(tbl.Columns())).
		Strs("embedded", loaded).
		Dur("took", time.Since(start)).
		Msg("catalog loaded")
	return tbl, nil
}

func extractArtifacts(cfg *config.Config, log zerolog.Logger) error {
	if cfg.ArtifactArchive == "" {
		return nil
	}
	if _, err := os.Stat(cfg.ArtifactArchive); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("archive", cfg.ArtifactArchive).Msg("artifact bundle not found; columns will be embedded on demand")
		return nil
	}
	dir := cfg.ArtifactDir
	if dir == "" {
		return fmt.Errorf("ARTIFACT_DIR is required when ARTIFACT_ARCHIVE is set")
	}
	files, err := archive.Extract(cfg.ArtifactArchive, dir)
	if err != nil {
		return fmt.Errorf("extract artifact bundle: %w", err)
	}
	log.Info().Str("archive", cfg.ArtifactArchive).Str("dir", dir).Int("files", len(files)).Msg("artifact bundle extracted")
	return nil
}
