package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}

func TestNewCreatesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	if _, err := New(Config{BaseDir: dir}); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("base dir not created: %v", err)
	}
}

func TestSaveWritesUnderBase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload := []byte(`{"url":"https://x/a-id1.html"}`)
	if err := store.Save(context.Background(), "articles/c_1.json", payload); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "articles", "c_1.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := store.Save(ctx, "articles/c_1.json", []byte("v1")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, "articles/c_1.json", []byte("v2")); err != nil {
		t.Fatalf("second save: %v", err)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Save(context.Background(), "../escape.json", []byte("x")); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if err := store.Save(context.Background(), "  ", []byte("x")); err == nil {
		t.Fatal("expected empty object name to be rejected")
	}
}
