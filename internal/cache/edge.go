package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// edgeStore adapts a ResponseCache into a DataStore by storing each record
// as a synthetic-URL response whose body is the JSON payload.
type edgeStore struct {
	edge    ResponseCache
	version int
}

// NewEdgeStore wraps a response cache as a structured-data backend.
func NewEdgeStore(edge ResponseCache, version int) DataStore {
	return &edgeStore{edge: edge, version: version}
}

func (s *edgeStore) Get(ctx context.Context, kind Kind, category, date string, v any) (bool, error) {
	key := SyntheticURL(s.version, kind, category, date)
	resp, err := s.edge.Match(ctx, key)
	if err != nil {
		return false, fmt.Errorf("edge match: %w", err)
	}
	if resp == nil {
		return false, nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		// Corrupt record: drop it and report a miss so the caller
		// recomputes. The delete is best-effort.
		_ = s.edge.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func (s *edgeStore) Put(ctx context.Context, kind Kind, category, date string, v any, ttl time.Duration) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp := &CachedResponse{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Body:        body,
	}
	if err := s.edge.Put(ctx, SyntheticURL(s.version, kind, category, date), resp, ttl); err != nil {
		return fmt.Errorf("edge put: %w", err)
	}
	return nil
}

func (s *edgeStore) Delete(ctx context.Context, kind Kind, category, date string) error {
	return s.edge.Delete(ctx, SyntheticURL(s.version, kind, category, date))
}
