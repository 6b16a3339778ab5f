package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/mkusaka/hinichi/internal/ai"
	"github.com/mkusaka/hinichi/internal/cache"
	"github.com/mkusaka/hinichi/internal/domain"
)

// Source fetches one day's listing. A non-OK upstream answer is an error;
// an empty slice with a nil error means the day had no entries.
type Source interface {
	FetchDaily(ctx context.Context, category, date string) ([]domain.Entry, error)
}

// ArticleFetcher returns the capped body text for one article URL.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Summarizer produces the structured daily overview.
type Summarizer interface {
	Summarize(ctx context.Context, displayDate string, items []ai.Item) (*domain.Summary, error)
}

// Renderer formats a resolved result in the requested output format,
// including error outcomes; it decides the HTTP status of the rendering.
type Renderer interface {
	Render(format string, result *domain.Result) (*cache.CachedResponse, error)
}

// Publisher announces a freshly resolved listing to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, category, date string, entryCount int) error
	Close() error
}

// DataStore and ResponseCache are re-exported here so the pipeline's
// collaborators are all declared in one place for mock generation.
type DataStore = cache.DataStore

type ResponseCache = cache.ResponseCache
