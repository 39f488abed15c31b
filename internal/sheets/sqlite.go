package sheets

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"
)

var validTableName = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// SQLiteSource reads grids out of SQLite tables. Column names become the
// header row, in table column order.
type SQLiteSource struct{}

// NewSQLiteSource creates a SQLite source.
func NewSQLiteSource() *SQLiteSource {
	return &SQLiteSource{}
}

// Fetch selects every row of the referenced table.
func (s *SQLiteSource) Fetch(ctx context.Context, ref Ref) ([][]any, error) {
	if ref.Path == "" || ref.Table == "" {
		return nil, fmt.Errorf("sheets: sqlite ref requires path and table")
	}
	if !validTableName.MatchString(ref.Table) {
		return nil, fmt.Errorf("sheets: invalid table name %q", ref.Table)
	}

	db, err := sql.Open("sqlite", ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, ref.Table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	grid := [][]any{header}

	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		grid = append(grid, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return grid, nil
}
