package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore appends newline-joined lines to a flat file. The file is
// created on first append; later appends are separated from existing
// content by a newline.
type FileStore struct {
	path string
}

// NewFileStore creates a file store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	existing := false
	if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
		existing = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	content := strings.Join(lines, "\n")
	if existing {
		content = "\n" + content
	}
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to append log lines: %w", err)
	}
	return nil
}
