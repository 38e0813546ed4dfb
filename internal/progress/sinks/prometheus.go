package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rriarchive/harvester/internal/progress"
)

// PrometheusSink exports crawl progress metrics via Prometheus. It owns all
// collectors for runs started/completed/running and per-section page and
// article counters.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	runRuntime    *prometheus.HistogramVec

	categoriesDone *prometheus.CounterVec

	pagesFetched *prometheus.CounterVec
	pageDuration *prometheus.HistogramVec

	articlesSaved   *prometheus.CounterVec
	articlesSkipped *prometheus.CounterVec
	articlesFailed  *prometheus.CounterVec
	checkpoints     *prometheus.CounterVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_runs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_runs_running",
			Help: "Current number of running crawls.",
		}),
		runRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_run_runtime_seconds",
			Help:    "Wall time per completed crawl run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"result"}),
		categoriesDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_categories_completed_total",
			Help: "Category crawls completed partitioned by section and result.",
		}, []string{"section", "result"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_pages_fetched_total",
			Help: "Listing and article pages fetched partitioned by section and status class.",
		}, []string{"section", "status_class"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_page_fetch_duration_seconds",
			Help:    "Page fetch duration partitioned by section and status class.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"section", "status_class"}),
		articlesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_articles_saved_total",
			Help: "Articles saved partitioned by section and category.",
		}, []string{"section", "category"}),
		articlesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_articles_skipped_total",
			Help: "Article links skipped because they were already indexed.",
		}, []string{"section"}),
		articlesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_articles_failed_total",
			Help: "Article failures partitioned by section.",
		}, []string{"section"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_checkpoints_total",
			Help: "Index checkpoints written partitioned by section.",
		}, []string{"section"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runRuntime,
		s.categoriesDone,
		s.pagesFetched,
		s.pageDuration,
		s.articlesSaved,
		s.articlesSkipped,
		s.articlesFailed,
		s.checkpoints,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart, progress.StageRunDone, progress.StageRunError:
		s.handleRunEvent(evt)
	case progress.StageCategoryDone:
		s.categoriesDone.WithLabelValues(section(evt), "success").Inc()
	case progress.StageCategoryError:
		s.categoriesDone.WithLabelValues(section(evt), "error").Inc()
	case progress.StagePageFetched:
		s.handlePageEvent(evt)
	case progress.StageArticleSaved:
		category := evt.Category
		if category == "" {
			category = "unknown"
		}
		s.articlesSaved.WithLabelValues(section(evt), category).Inc()
	case progress.StageArticleSkip:
		s.articlesSkipped.WithLabelValues(section(evt)).Inc()
	case progress.StageArticleError:
		s.articlesFailed.WithLabelValues(section(evt)).Inc()
	case progress.StageCheckpoint:
		s.checkpoints.WithLabelValues(section(evt)).Inc()
	}
}

func (s *PrometheusSink) handleRunEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
	case progress.StageRunDone:
		s.runsCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
	case progress.StageRunError:
		s.runsCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt, "error")
	}
	if evt.Stage != progress.StageRunStart && s.tracker.complete(evt.RunID) {
		s.runsRunning.Dec()
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.runRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handlePageEvent(evt progress.Event) {
	statusClass := string(evt.StatusClass)
	if statusClass == "" {
		statusClass = string(progress.StatusOther)
	}
	s.pagesFetched.WithLabelValues(section(evt), statusClass).Inc()
	if evt.Dur > 0 {
		s.pageDuration.WithLabelValues(section(evt), statusClass).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func section(evt progress.Event) string {
	if evt.Section == "" {
		return "unknown"
	}
	return evt.Section
}

type runTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[string]struct{})}
}

func (t *runTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
