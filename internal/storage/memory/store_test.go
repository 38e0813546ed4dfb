package memory

import (
	"context"
	"testing"
)

func TestStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewStore()
	payload := []byte("original")
	if err := store.Save(context.Background(), "a.json", payload); err != nil {
		t.Fatalf("Save: %v", err)
	}
	payload[0] = 'X'

	got, ok := store.Object("a.json")
	if !ok {
		t.Fatal("object missing")
	}
	if string(got) != "original" {
		t.Fatalf("store shares caller buffer: %s", got)
	}

	got[0] = 'Y'
	again, _ := store.Object("a.json")
	if string(again) != "original" {
		t.Fatalf("Object shares internal buffer: %s", again)
	}
}

func TestNamesSorted(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	for _, name := range []string{"c.json", "a.json", "b.json"} {
		if err := store.Save(ctx, name, []byte("x")); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}
	names := store.Names()
	want := []string{"a.json", "b.json", "c.json"}
	if len(names) != len(want) {
		t.Fatalf("got %d names", len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
	if store.Len() != 3 {
		t.Fatalf("Len = %d", store.Len())
	}
}
