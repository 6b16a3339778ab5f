package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryResponseCache struct {
	responses map[string]*CachedResponse
}

func newMemoryResponseCache() *memoryResponseCache {
	return &memoryResponseCache{responses: make(map[string]*CachedResponse)}
}

func (m *memoryResponseCache) Match(_ context.Context, key string) (*CachedResponse, error) {
	return m.responses[key], nil
}

func (m *memoryResponseCache) Put(_ context.Context, key string, resp *CachedResponse, _ time.Duration) error {
	m.responses[key] = resp
	return nil
}

func (m *memoryResponseCache) Delete(_ context.Context, key string) error {
	delete(m.responses, key)
	return nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "v3:entries:it:20260210", Key(3, KindEntries, "it", "20260210"))
	assert.Equal(t, "v1:ai-summary:all:20251231", Key(1, KindSummary, "all", "20251231"))
}

func TestSyntheticURL_EncodesCoordinates(t *testing.T) {
	u := SyntheticURL(2, KindArticle, "世の中", "20260210")
	assert.Contains(t, u, "kind=articles")
	assert.Contains(t, u, "date=20260210")
	assert.Contains(t, u, "v=2")
	assert.NotEqual(t, u, SyntheticURL(3, KindArticle, "世の中", "20260210"))
	assert.NotEqual(t, u, SyntheticURL(2, KindSummary, "世の中", "20260210"))
}

func TestEdgeStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewEdgeStore(newMemoryResponseCache(), 1)

	payload := map[string]int{"a": 1, "b": 2}
	require.NoError(t, store.Put(ctx, KindEntries, "it", "20260210", payload, time.Hour))

	var got map[string]int
	found, err := store.Get(ctx, KindEntries, "it", "20260210", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, got)

	// Other coordinates miss.
	found, err = store.Get(ctx, KindEntries, "it", "20260209", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, KindEntries, "it", "20260210"))
	found, err = store.Get(ctx, KindEntries, "it", "20260210", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEdgeStore_CorruptRecordSelfHeals(t *testing.T) {
	ctx := context.Background()
	edge := newMemoryResponseCache()
	store := NewEdgeStore(edge, 1)

	key := SyntheticURL(1, KindSummary, "it", "20260210")
	edge.responses[key] = &CachedResponse{Status: 200, ContentType: "application/json", Body: []byte("{not json")}

	var got map[string]string
	found, err := store.Get(ctx, KindSummary, "it", "20260210", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NotContains(t, edge.responses, key, "corrupt record should be deleted")
}

func TestSelect(t *testing.T) {
	edge := newMemoryResponseCache()

	durable := NewEdgeStore(edge, 1) // any DataStore works as the durable arm here
	assert.Equal(t, durable, Select(durable, edge, 1))

	_, isEdge := Select(nil, edge, 1).(*edgeStore)
	assert.True(t, isEdge)

	_, isNoop := Select(nil, nil, 1).(Noop)
	assert.True(t, isNoop)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var s DataStore = Noop{}

	require.NoError(t, s.Put(ctx, KindEntries, "it", "20260210", "x", time.Hour))
	var got string
	found, err := s.Get(ctx, KindEntries, "it", "20260210", &got)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, s.Delete(ctx, KindEntries, "it", "20260210"))
}
