// Package snapshot loads the catalog record table from its serialized form.
//
// Supported sources:
//
//	*.json            JSON array of objects
//	*.jsonl, *.ndjson one JSON object per line
//	*.db, *.sqlite    SQLite database, rows read from a table
//	postgres://...    Postgres DSN, rows read from a table
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ndsh/metasearch/internal/catalog"
)

// ErrSnapshotNotFound is returned when a file snapshot does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrUnsupportedFormat is returned for sources with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

var tableNameRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads the snapshot at source. table names the SQL table for database
// sources and is ignored for JSON files.
func Load(ctx context.Context, source, table string) (*catalog.Table, error) {
	if isPostgres(source) {
		if err := validTable(table); err != nil {
			return nil, err
		}
		return LoadPostgres(ctx, source, table)
	}

	if _, err := os.Stat(source); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (export the catalog snapshot first)", ErrSnapshotNotFound, source)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		return LoadJSON(source)
	case ".jsonl", ".ndjson":
		return LoadJSONLines(source)
	case ".db", ".sqlite", ".sqlite3":
		if err := validTable(table); err != nil {
			return nil, err
		}
		return LoadSQLite(ctx, source, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
}

func isPostgres(source string) bool {
	return strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://")
}

func validTable(table string) error {
	if !tableNameRx.MatchString(table) {
		return fmt.Errorf("invalid snapshot table name %q", table)
	}
	return nil
}
