package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/couchcryptid/metar-decoder/internal/observability"
	goredis "github.com/go-redis/redis/v8"
)

const keyPrefix = "metar:"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// CachedFetcher keeps raw METAR text in Redis so several replicas share one
// upstream fetch per station per TTL. Redis failures degrade to a direct fetch.
type CachedFetcher struct {
	client  *goredis.Client
	inner   domain.Fetcher
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedFetcher creates a Redis-backed cache decorator around a fetcher.
func NewCachedFetcher(client *goredis.Client, inner domain.Fetcher, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedFetcher {
	return &CachedFetcher{
		client:  client,
		inner:   inner,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedFetcher) FetchMETAR(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(strings.TrimSpace(station))
	key := cacheKey(station)

	text, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.metrics.FetchCache.WithLabelValues("redis", "hit").Inc()
		return text, nil
	case errors.Is(err, goredis.Nil):
		c.metrics.FetchCache.WithLabelValues("redis", "miss").Inc()
	default:
		c.metrics.FetchCache.WithLabelValues("redis", "miss").Inc()
		c.logger.Warn("redis get failed", "key", key, "error", err)
	}

	text, err = c.inner.FetchMETAR(ctx, station)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
	return text, nil
}

// CheckReadiness pings Redis.
func (c *CachedFetcher) CheckReadiness(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func cacheKey(station string) string {
	return keyPrefix + station
}
