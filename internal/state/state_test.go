package state

import (
	"sync"
	"testing"

	"github.com/rriarchive/harvester/internal/article"
)

func entry(url, category, filename string) article.IndexEntry {
	return article.IndexEntry{URL: url, Title: "t", Category: category, Filename: filename}
}

func TestClaimBlocksIndexedAndClaimed(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Restore([]article.IndexEntry{entry("https://x/a-id1.html", "c", "c_1.json")}, nil)

	if got := s.Claim("https://x/a-id1.html"); got != ClaimIndexed {
		t.Fatalf("claim on indexed URL = %v, want ClaimIndexed", got)
	}
	if got := s.Claim("https://x/a-id2.html"); got != ClaimAccepted {
		t.Fatalf("claim on new URL = %v, want ClaimAccepted", got)
	}
	if got := s.Claim("https://x/a-id2.html"); got != ClaimTaken {
		t.Fatalf("second claim on same URL = %v, want ClaimTaken", got)
	}
}

func TestClaimIsAtomicUnderConcurrency(t *testing.T) {
	t.Parallel()

	s := NewState()
	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim("https://x/contested-id9.html") == ClaimAccepted {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)
	var won int
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", won)
	}
}

func TestClaimPersistsAfterFailure(t *testing.T) {
	t.Parallel()

	s := NewState()
	if got := s.Claim("https://x/a-id3.html"); got != ClaimAccepted {
		t.Fatalf("first claim = %v, want ClaimAccepted", got)
	}
	s.RecordFailure("https://x/a-id3.html")
	if got := s.Claim("https://x/a-id3.html"); got != ClaimTaken {
		t.Fatalf("claim on failed URL = %v, want ClaimTaken", got)
	}
	if s.Contains("https://x/a-id3.html") {
		t.Fatal("failed URL must never enter the index")
	}
}

func TestAppendCountsNewArticles(t *testing.T) {
	t.Parallel()

	s := NewState()
	if n := s.Append(entry("https://x/a-id1.html", "c", "c_1.json")); n != 1 {
		t.Fatalf("first append: new count = %d, want 1", n)
	}
	if n := s.Append(entry("https://x/a-id2.html", "c", "c_2.json")); n != 2 {
		t.Fatalf("second append: new count = %d, want 2", n)
	}
	if n := s.Append(entry("https://x/a-id1.html", "c", "c_1.json")); n != 2 {
		t.Fatalf("duplicate append must not count, got %d", n)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestRestoredEntriesDoNotCountAsNew(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Restore([]article.IndexEntry{
		entry("https://x/a-id1.html", "c", "c_1.json"),
		entry("https://x/a-id1.html", "c", "c_1.json"),
		entry("https://x/a-id2.html", "c", "c_2.json"),
	}, []string{"https://x/bad.html", "https://x/bad.html"})

	if s.Len() != 2 {
		t.Fatalf("Len after restore = %d, want 2 (duplicates dropped)", s.Len())
	}
	if s.FailedCount() != 1 {
		t.Fatalf("FailedCount = %d, want 1", s.FailedCount())
	}
	if s.NewThisRun() != 0 {
		t.Fatalf("restored entries must not count as new, got %d", s.NewThisRun())
	}
}

func TestSnapshotIsConsistentCopy(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Append(entry("https://x/a-id1.html", "c", "c_1.json"))
	s.RecordFailure("https://x/bad.html")

	entries, failed := s.Snapshot()
	s.Append(entry("https://x/a-id2.html", "c", "c_2.json"))
	s.RecordFailure("https://x/worse.html")

	if len(entries) != 1 || len(failed) != 1 {
		t.Fatalf("snapshot mutated after the fact: %d entries, %d failed", len(entries), len(failed))
	}
	entries[0].URL = "clobbered"
	fresh, _ := s.Snapshot()
	if fresh[0].URL != "https://x/a-id1.html" {
		t.Fatal("snapshot must be a copy, not a view")
	}
}
