package floodapi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

// --- mock for cache and attach tests ---

type countingFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	result domain.MultiPolygon
	fail   map[string]error
}

func newCountingFetcher(result domain.MultiPolygon) *countingFetcher {
	return &countingFetcher{calls: map[string]int{}, fail: map[string]error{}, result: result}
}

func (f *countingFetcher) FetchPolygon(_ context.Context, u string) (domain.MultiPolygon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[u]++
	if err := f.fail[u]; err != nil {
		return nil, err
	}
	return f.result, nil
}

func (f *countingFetcher) callsFor(u string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[u]
}

func square() domain.MultiPolygon {
	return domain.MultiPolygon{{{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 0}}}}
}

// --- CachedPolygons tests ---

func TestCachedPolygons_Hit(t *testing.T) {
	inner := newCountingFetcher(square())
	cached := NewCachedPolygons(inner, 10, observability.NewMetricsForTesting())

	p1, err := cached.FetchPolygon(context.Background(), "a")
	require.NoError(t, err)
	p2, err := cached.FetchPolygon(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, inner.callsFor("a"), "should only call inner once")
}

func TestCachedPolygons_EmptyNotCached(t *testing.T) {
	inner := newCountingFetcher(nil)
	cached := NewCachedPolygons(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.FetchPolygon(context.Background(), "a")
	require.NoError(t, err)
	_, err = cached.FetchPolygon(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.callsFor("a"))
	assert.Zero(t, cached.Len())
}

func TestCachedPolygons_ErrorNotCached(t *testing.T) {
	inner := newCountingFetcher(square())
	inner.fail["a"] = errors.New("boom")
	cached := NewCachedPolygons(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.FetchPolygon(context.Background(), "a")
	require.Error(t, err)

	delete(inner.fail, "a")
	mp, err := cached.FetchPolygon(context.Background(), "a")
	require.NoError(t, err)
	assert.NotEmpty(t, mp)
	assert.Equal(t, 2, inner.callsFor("a"))
}

func TestCachedPolygons_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingFetcher(square())
	cached := NewCachedPolygons(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	for _, u := range []string{"a", "b", "a", "c"} {
		_, err := cached.FetchPolygon(ctx, u)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	// "b" was least recently used when "c" arrived.
	_, _ = cached.FetchPolygon(ctx, "a")
	_, _ = cached.FetchPolygon(ctx, "b")
	assert.Equal(t, 1, inner.callsFor("a"))
	assert.Equal(t, 2, inner.callsFor("b"))
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", square())
	c.put("a", domain.MultiPolygon{})

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, 1, c.len())
}
