package vatsim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls map[string]int
	text  string
	err   error
}

func (m *countingFetcher) FetchMETAR(_ context.Context, station string) (string, error) {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[station]++
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func newTestCache(inner *countingFetcher, maxEntries int, clock clockwork.Clock) *CachedFetcher {
	return NewCachedFetcher(inner, maxEntries, 2*time.Minute, clock, observability.NewMetricsForTesting())
}

// --- CachedFetcher tests ---

func TestCachedFetcher_CacheHit(t *testing.T) {
	inner := &countingFetcher{text: testMETAR}
	cached := newTestCache(inner, 10, clockwork.NewFakeClock())

	t1, err := cached.FetchMETAR(context.Background(), "NZWN")
	require.NoError(t, err)
	t2, err := cached.FetchMETAR(context.Background(), "nzwn")
	require.NoError(t, err)

	assert.Equal(t, testMETAR, t1)
	assert.Equal(t, t1, t2)
	assert.Equal(t, 1, inner.calls["NZWN"], "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(cached.metrics.FetchCache.WithLabelValues("memory", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(cached.metrics.FetchCache.WithLabelValues("memory", "miss")), 0)
}

func TestCachedFetcher_ExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &countingFetcher{text: testMETAR}
	cached := newTestCache(inner, 10, clock)

	_, err := cached.FetchMETAR(context.Background(), "NZWN")
	require.NoError(t, err)

	clock.Advance(2*time.Minute - time.Second)
	_, err = cached.FetchMETAR(context.Background(), "NZWN")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls["NZWN"])

	clock.Advance(time.Second)
	_, err = cached.FetchMETAR(context.Background(), "NZWN")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["NZWN"])
}

func TestCachedFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingFetcher{err: ErrNoReport}
	cached := newTestCache(inner, 10, clockwork.NewFakeClock())

	_, err := cached.FetchMETAR(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, ErrNoReport)
	_, err = cached.FetchMETAR(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, ErrNoReport)

	assert.Equal(t, 2, inner.calls["ZZZZ"])
	assert.Equal(t, 0, cached.cache.size())
}

func TestCachedFetcher_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	cached := newTestCache(&countingFetcher{err: boom}, 10, clockwork.NewFakeClock())

	_, err := cached.FetchMETAR(context.Background(), "NZWN")
	assert.ErrorIs(t, err, boom)
}

func TestLRUCache_Eviction(t *testing.T) {
	now := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	c := newLRUCache(2)

	c.put("NZWN", "a", later)
	c.put("NZAA", "b", later)
	c.put("NZCH", "c", later) // evicts NZWN

	_, ok := c.get("NZWN", now)
	assert.False(t, ok, "NZWN should have been evicted")

	v, ok := c.get("NZAA", now)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = c.get("NZCH", now)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestLRUCache_UpdateMovesToFront(t *testing.T) {
	now := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	c := newLRUCache(2)

	c.put("NZWN", "a", later)
	c.put("NZAA", "b", later)
	c.put("NZWN", "a2", later) // NZWN becomes most recent
	c.put("NZCH", "c", later)  // evicts NZAA

	_, ok := c.get("NZAA", now)
	assert.False(t, ok, "NZAA should have been evicted")

	v, ok := c.get("NZWN", now)
	assert.True(t, ok)
	assert.Equal(t, "a2", v)
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	now := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)
	c := newLRUCache(2)

	c.put("NZWN", "a", now)

	_, ok := c.get("NZWN", now)
	assert.False(t, ok)
	assert.Equal(t, 0, c.size())
}
