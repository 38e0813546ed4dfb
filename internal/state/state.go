// Package state holds the in-memory crawl state and its durable store. The
// State object owns the index and failed-URL set for one section; the Store
// collaborator persists point-in-time snapshots of both.
package state

import (
	"sync"

	"github.com/rriarchive/harvester/internal/article"
)

// State is the mutable crawl state for one section run. All methods are
// safe for concurrent use; the claim set makes the index-membership check
// atomic with claiming so parallel article workers never duplicate a fetch.
type State struct {
	mu        sync.RWMutex
	entries   []article.IndexEntry
	byURL     map[string]int
	failed    []string
	failedSet map[string]struct{}
	claimed   map[string]struct{}
	newCount  int
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		byURL:     make(map[string]int),
		failedSet: make(map[string]struct{}),
		claimed:   make(map[string]struct{}),
	}
}

// Restore seeds the state from a loaded snapshot. Duplicate URLs keep their
// first entry; order is preserved so saves round-trip the index unchanged.
func (s *State) Restore(entries []article.IndexEntry, failed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, dup := s.byURL[e.URL]; dup {
			continue
		}
		s.byURL[e.URL] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	for _, u := range failed {
		if _, dup := s.failedSet[u]; dup {
			continue
		}
		s.failedSet[u] = struct{}{}
		s.failed = append(s.failed, u)
	}
}

// Contains reports whether the URL is already indexed.
func (s *State) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[url]
	return ok
}

// ClaimOutcome reports the result of a Claim attempt.
type ClaimOutcome int

const (
	// ClaimAccepted means the URL is new and now claimed by the caller.
	ClaimAccepted ClaimOutcome = iota
	// ClaimIndexed means the URL is already in the index.
	ClaimIndexed
	// ClaimTaken means the URL was claimed earlier in this run.
	ClaimTaken
)

// Claim atomically checks index membership and claims the URL for this run.
// A claim is never released: a URL that fails after claiming is not retried
// within the run, only on a later run once rediscovered.
func (s *State) Claim(url string) ClaimOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, indexed := s.byURL[url]; indexed {
		return ClaimIndexed
	}
	if _, taken := s.claimed[url]; taken {
		return ClaimTaken
	}
	s.claimed[url] = struct{}{}
	return ClaimAccepted
}

// Append adds a new index entry and returns the per-run count of newly
// indexed articles. Re-appending an already indexed URL is a no-op.
func (s *State) Append(e article.IndexEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byURL[e.URL]; dup {
		return s.newCount
	}
	s.byURL[e.URL] = len(s.entries)
	s.entries = append(s.entries, e)
	s.newCount++
	return s.newCount
}

// RecordFailure adds the URL to the failed set. Failed URLs never enter the
// index, so a later run can still pick them up.
func (s *State) RecordFailure(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.failedSet[url]; dup {
		return
	}
	s.failedSet[url] = struct{}{}
	s.failed = append(s.failed, url)
}

// Snapshot returns consistent copies of the index and failed set, taken
// under one lock so checkpoint writes never observe interleaved mutation.
func (s *State) Snapshot() ([]article.IndexEntry, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]article.IndexEntry, len(s.entries))
	copy(entries, s.entries)
	failed := make([]string, len(s.failed))
	copy(failed, s.failed)
	return entries, failed
}

// Len returns the number of indexed articles.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FailedCount returns the size of the failed-URL set.
func (s *State) FailedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.failed)
}

// NewThisRun returns how many articles this run has indexed so far.
func (s *State) NewThisRun() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newCount
}
