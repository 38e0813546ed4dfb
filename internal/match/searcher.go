package match

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rriarchive/harvester/internal/database"
)

// Searcher answers literal containment queries against corpus B. It returns
// the base filenames of every record containing the needle. Implementations
// must honor ctx, which carries the per-search timeout.
type Searcher interface {
	ContainsLiteral(ctx context.Context, needle string) ([]string, error)
}

// FSSearcher scans a record directory tree for the needle.
type FSSearcher struct {
	root string
}

// NewFSSearcher builds a searcher over the given corpus directory. The
// directory must exist.
func NewFSSearcher(root string) (*FSSearcher, error) {
	if root == "" {
		return nil, fmt.Errorf("corpus directory is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus %s is not a directory", root)
	}
	return &FSSearcher{root: root}, nil
}

// ContainsLiteral walks the corpus and returns the names of files whose
// raw bytes contain the needle.
func (s *FSSearcher) ContainsLiteral(ctx context.Context, needle string) ([]string, error) {
	if needle == "" {
		return nil, nil
	}
	target := []byte(needle)
	var matches []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.Contains(data, target) {
			matches = append(matches, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", s.root, err)
	}
	return matches, nil
}

// DBSearcher answers containment queries from the article mirror instead
// of scanning files. It searches one section's rows.
type DBSearcher struct {
	db      database.Provider
	section string
}

// NewDBSearcher builds a mirror-backed searcher scoped to a section.
func NewDBSearcher(db database.Provider, section string) (*DBSearcher, error) {
	if db == nil {
		return nil, fmt.Errorf("database provider is required")
	}
	if section == "" {
		return nil, fmt.Errorf("section is required")
	}
	return &DBSearcher{db: db, section: section}, nil
}

// ContainsLiteral delegates to the mirror's payload containment query.
func (s *DBSearcher) ContainsLiteral(ctx context.Context, needle string) ([]string, error) {
	return s.db.FindContaining(ctx, s.section, needle)
}
