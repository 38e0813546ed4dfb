// Package progress defines the event structures emitted during crawl runs.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart      Stage = "RUN_START"
	StageRunDone       Stage = "RUN_DONE"
	StageRunError      Stage = "RUN_ERROR"
	StageCategoryStart Stage = "CATEGORY_START"
	StageCategoryDone  Stage = "CATEGORY_DONE"
	StageCategoryError Stage = "CATEGORY_ERROR"
	StagePageFetched   Stage = "PAGE_FETCHED"
	StageArticleSaved  Stage = "ARTICLE_SAVED"
	StageArticleSkip   Stage = "ARTICLE_SKIPPED"
	StageArticleError  Stage = "ARTICLE_ERROR"
	StageCheckpoint    Stage = "CHECKPOINT"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for page fetches.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of a crawl run.
type Event struct {
	// RunID identifies the crawl run that emitted the event.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or article milestone occurred.
	Stage Stage
	// Section names the site section being crawled.
	Section string
	// Category scopes category lifecycle and article events.
	Category string
	// URL is the optional page or article URL.
	URL string
	// Saved carries the cumulative count of articles saved this run.
	Saved int64
	// StatusClass groups HTTP response codes for page fetches.
	StatusClass StatusClass
	// Dur captures execution latency for fetches and run completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError, StageCheckpoint:
	case StageCategoryStart, StageCategoryDone, StageCategoryError:
		if e.Category == "" {
			return errors.New("category events require category")
		}
	case StagePageFetched:
		if e.URL == "" {
			return errors.New("page fetched requires url")
		}
		if e.StatusClass == "" {
			return errors.New("page fetched requires status class")
		}
	case StageArticleSaved, StageArticleSkip, StageArticleError:
		if e.URL == "" {
			return errors.New("article events require url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for page fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
