package catalog

import (
	"context"
	"fmt"
	"os"
)

// Source supplies catalog documents.
type Source interface {
	// Load returns the current catalog.
	Load(ctx context.Context) (*Catalog, error)

	// Name describes the source for logging.
	Name() string
}

// FileSource loads a catalog from a YAML file on disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and parses the file.
func (s *FileSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(s.Path, data)
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// StaticSource always returns the same catalog.
type StaticSource struct {
	Catalog *Catalog
}

// Load returns the static catalog.
func (s StaticSource) Load(ctx context.Context) (*Catalog, error) {
	if s.Catalog == nil {
		return Default(), nil
	}
	return s.Catalog, nil
}

// Name returns "builtin".
func (s StaticSource) Name() string {
	return "builtin"
}
