package state

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/article"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store, dir
}

func TestLoadFreshStart(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	entries, failed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 || len(failed) != 0 {
		t.Fatalf("expected empty state, got %d entries, %d failed", len(entries), len(failed))
	}
}

func TestLoadCorruptFilesStartEmpty(t *testing.T) {
	t.Parallel()

	store, dir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "progress.json"), []byte("[]!!"), 0o600); err != nil {
		t.Fatalf("seed corrupt progress: %v", err)
	}

	entries, failed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt state must not fail the load: %v", err)
	}
	if len(entries) != 0 || len(failed) != 0 {
		t.Fatalf("expected empty state from corrupt files, got %d entries, %d failed", len(entries), len(failed))
	}
}

func TestLoadDropsMalformedEntriesOnly(t *testing.T) {
	t.Parallel()

	store, dir := newTestStore(t)
	raw := `[
  {"url": "https://x/a-id1.html", "title": "A", "category": "c", "filename": "c_1.json"},
  {"url": 42},
  {"title": "no url or filename"},
  {"url": "https://x/a-id2.html", "title": "B", "category": "c", "filename": "c_2.json"}
]`
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(raw), 0o600); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	entries, _, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(entries))
	}
	if entries[0].URL != "https://x/a-id1.html" || entries[1].URL != "https://x/a-id2.html" {
		t.Fatalf("wrong survivors: %+v", entries)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	entries := []article.IndexEntry{
		{URL: "https://x/a-id1.html", Title: "A", Date: "2026-01-01", Category: "c", Filename: "c_1.json"},
		{URL: "https://x/a-id2.html", Title: "B", Category: "d", Filename: "d_2.json"},
	}
	failed := []string{"https://x/bad.html"}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := store.SaveIndex(ctx, entries); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}
	if err := store.SaveProgress(ctx, article.Progress{FailedURLs: failed, LastSaved: now}); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	if err := store.SaveStats(ctx, article.DeriveStats(entries, failed, now)); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}

	gotEntries, gotFailed, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(gotEntries) != 2 || gotEntries[0].Date != "2026-01-01" {
		t.Fatalf("index did not round-trip: %+v", gotEntries)
	}
	if len(gotFailed) != 1 || gotFailed[0] != "https://x/bad.html" {
		t.Fatalf("progress did not round-trip: %v", gotFailed)
	}
}

func TestSavesAreFullOverwrites(t *testing.T) {
	t.Parallel()

	store, dir := newTestStore(t)
	ctx := context.Background()

	big := []article.IndexEntry{
		{URL: "https://x/a-id1.html", Title: "A", Category: "c", Filename: "c_1.json"},
		{URL: "https://x/a-id2.html", Title: "B", Category: "c", Filename: "c_2.json"},
	}
	small := big[:1]

	if err := store.SaveIndex(ctx, big); err != nil {
		t.Fatalf("SaveIndex big: %v", err)
	}
	if err := store.SaveIndex(ctx, small); err != nil {
		t.Fatalf("SaveIndex small: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var entries []article.IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("save must overwrite, not merge: %d entries", len(entries))
	}

	if err := store.SaveIndex(ctx, small); err != nil {
		t.Fatalf("SaveIndex repeat: %v", err)
	}
	again, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("re-read index: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatal("identical snapshots must write identical bytes")
	}
}

func TestSaveEmptyStateWritesEmptyCollections(t *testing.T) {
	t.Parallel()

	store, dir := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveIndex(ctx, nil); err != nil {
		t.Fatalf("SaveIndex nil: %v", err)
	}
	if err := store.SaveProgress(ctx, article.Progress{LastSaved: time.Now()}); err != nil {
		t.Fatalf("SaveProgress nil: %v", err)
	}

	idx, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(idx) != "[]" {
		t.Fatalf("empty index should serialize as [], got %s", idx)
	}
	var p map[string]any
	prog, err := os.ReadFile(filepath.Join(dir, "progress.json"))
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	if err := json.Unmarshal(prog, &p); err != nil {
		t.Fatalf("unmarshal progress: %v", err)
	}
	if _, ok := p["failed_urls"].([]any); !ok {
		t.Fatalf("failed_urls should be an array, got %T", p["failed_urls"])
	}
}
