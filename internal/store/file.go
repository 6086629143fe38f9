package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File persists each collection as one JSON document under a base
// directory.
type File struct {
	baseDir string
}

// NewFile ensures the base directory exists and returns a handle.
func NewFile(baseDir string) (*File, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &File{baseDir: baseDir}, nil
}

// Get reads the collection document. Absent files are not an error.
func (s *File) Get(_ context.Context, collection string) ([]byte, error) {
	raw, err := os.ReadFile(s.resolve(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read collection file: %w", err)
	}
	return raw, nil
}

// Set writes the collection document whole.
func (s *File) Set(_ context.Context, collection string, payload []byte) error {
	if err := os.WriteFile(s.resolve(collection), payload, 0o644); err != nil {
		return fmt.Errorf("write collection file: %w", err)
	}
	return nil
}

func (s *File) resolve(collection string) string {
	return filepath.Join(s.baseDir, filepath.Base(collection)+".json")
}
