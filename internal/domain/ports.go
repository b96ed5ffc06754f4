package domain

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// DocumentFetcher returns a parsed page or fails fast.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

type PracticeRepository interface {
	// Write paths
	UpsertOverviews(ctx context.Context, runID string, ovs []Overview) error
	ReplaceReviews(ctx context.Context, runID, practiceID string, rs []Review) error
	// DeletePractice removes a practice and its reviews; unknown ids are not an error.
	DeletePractice(ctx context.Context, id string) error
	LogMiss(ctx context.Context, m Miss) error
	RecordRun(ctx context.Context, r RunSummary) error

	// Read paths
	GetPractice(ctx context.Context, id string) (Overview, error)
	ListPractices(ctx context.Context, q PracticesQuery) (PracticesPage, error)
	ListReviews(ctx context.Context, id string, pg PageQuery) (ReviewsPage, error)
}

// DatasetWriter persists the two tabular datasets of a run.
type DatasetWriter interface {
	Write(ctx context.Context, overviews []Overview, reviews []Review) error
}

// Cache stores JSON-able snapshots. A ttlSec of 0 keeps the key until overwritten.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered int
	Overviews  int
	Reviews    int
	Misses     int
}

type PracticesQuery struct {
	Limit  int
	Cursor *string
}

type PageQuery struct {
	Limit  int
	Cursor *int // last Seq seen
}

type PracticesPage struct {
	Items      []Overview
	NextCursor *string
}

type ReviewsPage struct {
	Items      []Review
	NextCursor *int
}
