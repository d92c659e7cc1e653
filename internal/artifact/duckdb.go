package artifact

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/churn-dashboard/backend/internal/models"
)

// DuckDBTableReader reads parquet and CSV tables through an in-memory
// DuckDB connection.
type DuckDBTableReader struct {
	MemoryLimit string
	Threads     int
}

func NewDuckDBTableReader() *DuckDBTableReader {
	return &DuckDBTableReader{MemoryLimit: "512MB", Threads: 2}
}

func (r *DuckDBTableReader) Name() string {
	return "duckdb"
}

func (r *DuckDBTableReader) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq", ".csv":
		return true
	}
	return false
}

func (r *DuckDBTableReader) open() (*sql.DB, error) {
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", r.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", r.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (r *DuckDBTableReader) Read(ctx context.Context, path string) (*models.Frame, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	fn := "read_csv_auto"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".parquet" || ext == ".pq" {
		fn = "read_parquet"
	}
	query := fmt.Sprintf("SELECT * FROM %s(%s)", fn, quoteLiteral(path))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", filepath.Base(path), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	frame := models.NewFrame(columns)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", frame.Len(), err)
		}
		rec := make([]string, len(columns))
		for i, v := range values {
			if t, ok := v.(time.Time); ok {
				rec[i] = t.Format(time.RFC3339)
				continue
			}
			rec[i] = formatCell(v)
		}
		frame.Records = append(frame.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frame, nil
}

// quoteLiteral quotes s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
