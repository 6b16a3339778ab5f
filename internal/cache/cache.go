// Package cache defines the tiered data cache: three independent kinds of
// JSON payloads keyed by (kind, category, date), stored through one of two
// interchangeable backends selected at construction time.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Kind names one cache tier. Tiers share coordinates but never payloads;
// invalidating one does not touch the others.
type Kind string

const (
	KindEntries Kind = "entries"
	KindArticle Kind = "articles"
	KindSummary Kind = "ai-summary"
)

// DataStore is the structured-data cache. Get reports a miss with
// found=false and a nil error; Put fully replaces any prior payload.
type DataStore interface {
	Get(ctx context.Context, kind Kind, category, date string, v any) (found bool, err error)
	Put(ctx context.Context, kind Kind, category, date string, v any, ttl time.Duration) error
	Delete(ctx context.Context, kind Kind, category, date string) error
}

// CachedResponse is a stored rendering of a complete response.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache caches whole responses by URL. It backs the full-response
// cache directly and, through edgeStore, doubles as a structured-data
// backend when no durable store is configured.
type ResponseCache interface {
	Match(ctx context.Context, key string) (*CachedResponse, error)
	Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key is the durable-store key for one record. The version prefix makes
// every record from earlier cache formats unreachable without explicit
// deletion; orphans age out by TTL.
func Key(version int, kind Kind, category, date string) string {
	return fmt.Sprintf("v%d:%s:%s:%s", version, kind, category, date)
}

// SyntheticURL encodes the same coordinates as a URL so a response cache
// can hold structured data alongside whole responses.
func SyntheticURL(version int, kind Kind, category, date string) string {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("category", category)
	q.Set("date", date)
	q.Set("v", fmt.Sprintf("%d", version))
	return "https://cache.hinichi.internal/data?" + q.Encode()
}

// Select picks the backend: durable store when available, edge cache as
// fallback, no-op when neither is configured.
func Select(durable DataStore, edge ResponseCache, version int) DataStore {
	if durable != nil {
		return durable
	}
	if edge != nil {
		return NewEdgeStore(edge, version)
	}
	return Noop{}
}

// Noop caches nothing: every read misses and writes succeed silently. Used
// when no backend is configured, degrading the system to always recompute.
type Noop struct{}

func (Noop) Get(context.Context, Kind, string, string, any) (bool, error) { return false, nil }
func (Noop) Put(context.Context, Kind, string, string, any, time.Duration) error {
	return nil
}
func (Noop) Delete(context.Context, Kind, string, string) error { return nil }
