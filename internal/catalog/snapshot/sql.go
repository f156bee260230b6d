package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/model"
)

// LoadSQLite reads every row of table from the SQLite database at path.
// The connection is query-only.
func LoadSQLite(ctx context.Context, path, table string) (*catalog.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=query_only(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("open sqlite snapshot %s: %w", path, err)
	}
	return LoadDB(ctx, db, table)
}

// LoadPostgres reads every row of table from the Postgres database at dsn
// using the pgx stdlib driver.
func LoadPostgres(ctx context.Context, dsn, table string) (*catalog.Table, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("open postgres snapshot: %w", err)
	}
	return LoadDB(ctx, db, table)
}

// LoadDB reads every row of table, keeping the table's column order.
func LoadDB(ctx context.Context, db *sql.DB, table string) (*catalog.Table, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	rs, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("query snapshot table %s: %w", table, err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var rows []model.Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan snapshot row %d: %w", len(rows), err)
		}
		row := make(model.Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return catalog.NewTable(cols, rows)
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return x
	}
}
