package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ndsh/metasearch/internal/archive"
	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/catalog/snapshot"
	"github.com/ndsh/metasearch/internal/config"
	emb "github.com/ndsh/metasearch/internal/embeddings"
	"github.com/ndsh/metasearch/internal/factory"
	"github.com/ndsh/metasearch/internal/logger"
)

func runBuildArtifacts(ctx context.Context, cfg *config.Config, columns []string, dest string, out io.Writer) error {
	if len(columns) == 0 {
		return fmt.Errorf("at least one --columns entry is required")
	}
	if dest == "" {
		return fmt.Errorf("--out is required")
	}
	log := logger.NewWithWriter(os.Stderr, "metasearchctl").Level(logger.ParseLevel(cfg.LogLevel))

	tbl, err := snapshot.Load(ctx, cfg.SnapshotPath, cfg.SnapshotTable)
	if err != nil {
		return fmt.Errorf("load catalog snapshot: %w", err)
	}
	provider, dims, err := factory.NewEmbeddingProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	if c, ok := provider.(emb.Closer); ok {
		defer c.Close()
	}
	// columns promoted from the snapshot are bundled as-is
	if err := tbl.CheckDimensions(dims); err != nil {
		return err
	}

	work, err := os.MkdirTemp("", "metasearch-artifacts-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(work)

	files := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, err := tbl.EnsureEmbedded(ctx, col, provider); err != nil {
			return err
		}
		path, err := catalog.WriteArtifact(tbl, col, work)
		if err != nil {
			return err
		}
		files = append(files, path)
		fmt.Fprintf(out, "embedded %s (%d rows)\n", col, tbl.Len())
	}

	if err := archive.Create(dest, files...); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\n", dest)
	return nil
}
