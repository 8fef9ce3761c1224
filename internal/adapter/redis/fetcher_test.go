package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/couchcryptid/metar-decoder/internal/observability"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMETAR = "NZAA 251130Z 24012KT 9999 -RA FEW018 BKN030 17/14 Q1009"

type countingFetcher struct {
	calls int
	text  string
	err   error
}

func (m *countingFetcher) FetchMETAR(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.text, m.err
}

func setupMockRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestFetcher(client *goredis.Client, inner *countingFetcher) *CachedFetcher {
	return NewCachedFetcher(client, inner, 2*time.Minute, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	mr, client := setupMockRedis(t)
	inner := &countingFetcher{text: testMETAR}
	f := newTestFetcher(client, inner)

	text, err := f.FetchMETAR(context.Background(), "nzaa")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)

	stored, err := mr.Get("metar:NZAA")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, stored)
	assert.Equal(t, 2*time.Minute, mr.TTL("metar:NZAA"))

	text, err = f.FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)
	assert.Equal(t, 1, inner.calls)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchCache.WithLabelValues("redis", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchCache.WithLabelValues("redis", "miss")), 0)
}

func TestCachedFetcher_SharedAcrossReplicas(t *testing.T) {
	_, client := setupMockRedis(t)
	first := &countingFetcher{text: testMETAR}
	second := &countingFetcher{text: "should not be fetched"}

	_, err := newTestFetcher(client, first).FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)

	text, err := newTestFetcher(client, second).FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)
	assert.Equal(t, 0, second.calls)
}

func TestCachedFetcher_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupMockRedis(t)
	inner := &countingFetcher{text: testMETAR}
	f := newTestFetcher(client, inner)

	_, err := f.FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)

	mr.FastForward(2*time.Minute + time.Second)

	_, err = f.FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ErrorNotCached(t *testing.T) {
	mr, client := setupMockRedis(t)
	boom := errors.New("upstream down")
	f := newTestFetcher(client, &countingFetcher{err: boom})

	_, err := f.FetchMETAR(context.Background(), "NZAA")
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("metar:NZAA"))
}

func TestCachedFetcher_RedisDownFallsBackToUpstream(t *testing.T) {
	mr, client := setupMockRedis(t)
	inner := &countingFetcher{text: testMETAR}
	f := newTestFetcher(client, inner)

	mr.Close()

	text, err := f.FetchMETAR(context.Background(), "NZAA")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)
	assert.Equal(t, 1, inner.calls)
	assert.Error(t, f.CheckReadiness(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}
