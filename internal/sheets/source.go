// Package sheets provides read access to the tabular data sources reminder
// targets point at: Google Sheets, local CSV files and SQLite tables. Every
// source returns the same shape, a 2D grid whose first row is the header row.
package sheets

import (
	"context"
	"fmt"
	"path/filepath"
)

// Source kinds understood by the router.
const (
	KindGoogle = "google"
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// Ref locates one grid inside a data source.
type Ref struct {
	Kind          string `yaml:"kind"`
	SpreadsheetID string `yaml:"spreadsheet_id,omitempty"`
	SheetName     string `yaml:"sheet_name,omitempty"`
	Path          string `yaml:"path,omitempty"`  // csv file or sqlite database
	Table         string `yaml:"table,omitempty"` // sqlite table
}

// Name returns the human-readable grid name used in log lines.
func (r Ref) Name() string {
	switch {
	case r.SheetName != "":
		return r.SheetName
	case r.Table != "":
		return r.Table
	case r.Path != "":
		return filepath.Base(r.Path)
	default:
		return r.SpreadsheetID
	}
}

// Source fetches the full grid for a ref. Row 0 is the header row and
// subsequent rows are data; cell types are whatever the backend yields.
type Source interface {
	Fetch(ctx context.Context, ref Ref) ([][]any, error)
}

// Router dispatches fetches to the source registered for the ref's kind.
// Refs without a kind default to Google Sheets, matching the original
// configuration documents that only carry spreadsheet_id/sheet_name.
type Router struct {
	sources map[string]Source
}

// NewRouter creates an empty source router.
func NewRouter() *Router {
	return &Router{sources: make(map[string]Source)}
}

// Register adds a source for a kind, replacing any previous registration.
func (r *Router) Register(kind string, s Source) {
	r.sources[kind] = s
}

// Fetch routes to the registered source for ref.Kind.
func (r *Router) Fetch(ctx context.Context, ref Ref) ([][]any, error) {
	kind := ref.Kind
	if kind == "" {
		kind = KindGoogle
	}
	s, ok := r.sources[kind]
	if !ok {
		return nil, fmt.Errorf("sheets: no source registered for kind %q", kind)
	}
	return s.Fetch(ctx, ref)
}
