package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/metar-decoder/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/metar-decoder/internal/adapter/kafka"
	"github.com/couchcryptid/metar-decoder/internal/adapter/poller"
	redisadapter "github.com/couchcryptid/metar-decoder/internal/adapter/redis"
	"github.com/couchcryptid/metar-decoder/internal/adapter/vatsim"
	"github.com/couchcryptid/metar-decoder/internal/config"
	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/couchcryptid/metar-decoder/internal/observability"
	"github.com/couchcryptid/metar-decoder/internal/pipeline"
	"github.com/couchcryptid/metar-decoder/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

// source is a pipeline extractor that owns resources released on shutdown.
type source interface {
	pipeline.BatchExtractor
	io.Closer
}

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := readiness{}
	closers := []io.Closer{}

	fetcher, err := newFetcher(ctx, cfg, metrics, logger, &ready, &closers)
	if err != nil {
		logger.Error("failed to set up metar fetcher", "error", err)
		os.Exit(1)
	}

	var src source
	switch cfg.Source {
	case config.SourceVatsim:
		pl := poller.New(fetcher, cfg.StationCodes(), cfg.PollInterval, clockwork.NewRealClock(), metrics, logger)
		if err := pl.Start(); err != nil {
			logger.Error("failed to start poller", "error", err)
			os.Exit(1)
		}
		src = pl
	default:
		src = kafkaadapter.NewReader(cfg, logger)
	}

	decoders := domain.NewDecoderSet(cfg.LocalSensors(), cfg.LocalWindStation)
	reports := store.NewMemoryStore(cfg.StoreMaxHistory)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(decoders, logger)

	p := pipeline.New(src, transformer, pipeline.FanOut{writer, reports}, logger, metrics, cfg.BatchSize)
	ready = append(ready, p)

	api := &httpadapter.API{
		Fetcher:  fetcher,
		Store:    reports,
		Decoders: decoders,
		Stations: cfg.Stations,
		Location: cfg.DisplayLocation,
		Logger:   logger,
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("metar decoder started",
		"source", cfg.Source, "stations", cfg.StationCodes(), "fetch_cache", cfg.FetchCache)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := src.Close(); err != nil {
		logger.Error("source close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newFetcher builds the upstream METAR client wrapped in the configured cache.
// A Redis cache adds a readiness check and a connection to close.
func newFetcher(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, ready *readiness, closers *[]io.Closer) (domain.Fetcher, error) {
	client := vatsim.NewClient(cfg.VatsimBaseURL, cfg.VatsimTimeout, cfg.VatsimMaxRetries, metrics, logger)

	switch cfg.FetchCache {
	case config.FetchCacheNone:
		logger.Info("fetch cache disabled")
		return client, nil
	case config.FetchCacheRedis:
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis fetch cache: %w", err)
		}
		cached := redisadapter.NewCachedFetcher(rdb, client, cfg.FetchCacheTTL, metrics, logger)
		*ready = append(*ready, cached)
		*closers = append(*closers, rdb)
		logger.Info("redis fetch cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.FetchCacheTTL)
		return cached, nil
	default:
		logger.Info("memory fetch cache enabled", "size", cfg.FetchCacheSize, "ttl", cfg.FetchCacheTTL)
		return vatsim.NewCachedFetcher(client, cfg.FetchCacheSize, cfg.FetchCacheTTL, clockwork.NewRealClock(), metrics), nil
	}
}
