package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil ||
		matchSearchesTotal == nil || matchCorrespondencesTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveMatchSearch(t *testing.T) {
	Init()

	okBefore := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("error"))

	ObserveMatchSearch(nil)
	ObserveMatchSearch(errors.New("timeout"))

	if got := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("ok")); got != okBefore+1 {
		t.Errorf("ok searches = %f, want %f", got, okBefore+1)
	}
	if got := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("error")); got != errBefore+1 {
		t.Errorf("error searches = %f, want %f", got, errBefore+1)
	}
}

func TestObserveCorrespondences(t *testing.T) {
	Init()

	before := testutil.ToFloat64(matchCorrespondencesTotal)
	ObserveCorrespondences(3)
	ObserveCorrespondences(0)
	ObserveCorrespondences(-1)

	if got := testutil.ToFloat64(matchCorrespondencesTotal); got != before+3 {
		t.Errorf("correspondences total = %f, want %f", got, before+3)
	}
}

type stubSearcher struct {
	matches []string
	err     error
	calls   int
}

func (s *stubSearcher) ContainsLiteral(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.matches, s.err
}

func TestInstrumentSearcher(t *testing.T) {
	inner := &stubSearcher{matches: []string{"a.json"}}
	wrapped := InstrumentSearcher(inner)

	okBefore := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("ok"))

	matches, err := wrapped.ContainsLiteral(context.Background(), "http://x/img1.jpg")
	if err != nil {
		t.Fatalf("ContainsLiteral() error = %v", err)
	}
	if len(matches) != 1 || matches[0] != "a.json" {
		t.Fatalf("matches = %v", matches)
	}
	if inner.calls != 1 {
		t.Fatalf("inner searcher called %d times, want 1", inner.calls)
	}
	if got := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("ok")); got != okBefore+1 {
		t.Errorf("ok searches = %f, want %f", got, okBefore+1)
	}

	inner.err = errors.New("boom")
	errBefore := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("error"))
	if _, err := wrapped.ContainsLiteral(context.Background(), "needle"); err == nil {
		t.Fatal("expected error passthrough")
	}
	if got := testutil.ToFloat64(matchSearchesTotal.WithLabelValues("error")); got != errBefore+1 {
		t.Errorf("error searches = %f, want %f", got, errBefore+1)
	}
}
