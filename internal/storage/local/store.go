// Package local implements the article record store on the local
// filesystem. This is the normative layout: records land under the section
// output root and are what the correspondence matcher later reads.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local record store.
type Config struct {
	// BaseDir is the section output root records are stored under.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store writes article records to disk.
type Store struct {
	baseDir string
}

// New creates a local record store rooted at the configured directory,
// creating it when absent and failing fast when it is not writable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &Store{baseDir: cfg.BaseDir}, nil
}

// Save writes data under the base directory, creating parents as needed.
// Object names are slash-separated relative paths; anything escaping the
// base directory is rejected.
func (s *Store) Save(ctx context.Context, objectName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", objectName, err)
	}
	if strings.TrimSpace(objectName) == "" {
		return fmt.Errorf("object name is required")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	cleanBase := filepath.Clean(s.baseDir)
	cleanFull := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("object name %q escapes the base directory", objectName)
	}

	if err := os.MkdirAll(filepath.Dir(cleanFull), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(cleanFull, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", cleanFull, err)
	}
	return nil
}
