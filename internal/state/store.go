package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/article"
)

// Store persists crawl state snapshots. Saves are idempotent full
// overwrites; each file is a self-contained snapshot readable without the
// others.
type Store interface {
	Load(ctx context.Context) ([]article.IndexEntry, []string, error)
	SaveIndex(ctx context.Context, entries []article.IndexEntry) error
	SaveProgress(ctx context.Context, progress article.Progress) error
	SaveStats(ctx context.Context, stats article.Stats) error
}

const (
	indexFile    = "index.json"
	progressFile = "progress.json"
	statsFile    = "stats.json"
)

// FileStore keeps index.json, progress.json and stats.json under one
// section output root.
type FileStore struct {
	root   string
	logger *zap.Logger
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("state store root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{root: root, logger: logger}, nil
}

// Load reconstructs prior state. Missing files mean a fresh start; corrupt
// files are logged at warning level and treated as empty so the run favors
// forward progress over strict consistency. Malformed individual entries
// are dropped, not fatal to the rest of the load.
func (s *FileStore) Load(ctx context.Context) ([]article.IndexEntry, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	entries := s.loadIndex()
	failed := s.loadProgress()
	return entries, failed, nil
}

func (s *FileStore) loadIndex() []article.IndexEntry {
	path := filepath.Join(s.root, indexFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no existing index, starting fresh", zap.String("path", path))
		return nil
	}
	if err != nil {
		s.logger.Warn("index unreadable, starting from empty state", zap.String("path", path), zap.Error(err))
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("index corrupt, starting from empty state", zap.String("path", path), zap.Error(err))
		return nil
	}
	entries := make([]article.IndexEntry, 0, len(raw))
	for i, msg := range raw {
		var e article.IndexEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			s.logger.Warn("dropping malformed index entry", zap.Int("position", i), zap.Error(err))
			continue
		}
		if err := e.Validate(); err != nil {
			s.logger.Warn("dropping invalid index entry", zap.Int("position", i), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (s *FileStore) loadProgress() []string {
	path := filepath.Join(s.root, progressFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn("progress unreadable, starting from empty state", zap.String("path", path), zap.Error(err))
		return nil
	}
	var p article.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("progress corrupt, starting from empty state", zap.String("path", path), zap.Error(err))
		return nil
	}
	return p.FailedURLs
}

// SaveIndex overwrites index.json with the given snapshot.
func (s *FileStore) SaveIndex(ctx context.Context, entries []article.IndexEntry) error {
	if entries == nil {
		entries = []article.IndexEntry{}
	}
	return s.writeJSON(ctx, indexFile, entries)
}

// SaveProgress overwrites progress.json.
func (s *FileStore) SaveProgress(ctx context.Context, progress article.Progress) error {
	if progress.FailedURLs == nil {
		progress.FailedURLs = []string{}
	}
	return s.writeJSON(ctx, progressFile, progress)
}

// SaveStats overwrites stats.json with the derived view.
func (s *FileStore) SaveStats(ctx context.Context, stats article.Stats) error {
	if stats.ArticlesByCategory == nil {
		stats.ArticlesByCategory = map[string]int{}
	}
	return s.writeJSON(ctx, statsFile, stats)
}

func (s *FileStore) writeJSON(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
