package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSource reads grids from local CSV files. Every cell is a string;
// ragged rows are allowed and short rows simply have fewer cells.
type CSVSource struct {
	baseDir string
}

// NewCSVSource creates a CSV source. Relative ref paths resolve against
// baseDir; an empty baseDir means the current working directory.
func NewCSVSource(baseDir string) *CSVSource {
	return &CSVSource{baseDir: baseDir}
}

// Fetch reads and parses the referenced CSV file.
func (s *CSVSource) Fetch(ctx context.Context, ref Ref) ([][]any, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("sheets: csv ref requires path")
	}

	path := ref.Path
	if !filepath.IsAbs(path) && s.baseDir != "" {
		path = filepath.Join(s.baseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	grid := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		grid[i] = row
	}
	return grid, nil
}
