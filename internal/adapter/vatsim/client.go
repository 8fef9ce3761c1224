package vatsim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
)

const maxBodyBytes = 64 << 10

var (
	// ErrNoReport is returned when the upstream has no METAR for a station.
	ErrNoReport = errors.New("no METAR available")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")

	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
)

// Client implements domain.Fetcher against the VATSIM METAR text endpoint,
// which returns the latest raw report for a station as plain text.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a METAR client. Each request is retried up to maxRetries
// times with exponential backoff; repeated failures open the circuit breaker.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		breaker:    newBreaker(),
		maxRetries: maxRetries,
		backoff:    250 * time.Millisecond,
		maxBackoff: 2 * time.Second,
		metrics:    metrics,
		logger:     logger,
	}
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vatsim-metar",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// A station without a report is an answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoReport)
		},
	})
}

// FetchMETAR returns the trimmed raw METAR text for station.
func (c *Client) FetchMETAR(ctx context.Context, station string) (string, error) {
	station = strings.ToUpper(strings.TrimSpace(station))
	start := time.Now()
	text, err := c.fetchWithRetry(ctx, station)
	c.metrics.FetchDuration.WithLabelValues(station).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.FetchRequests.WithLabelValues(station, "success").Inc()
	case errors.Is(err, ErrNoReport):
		c.metrics.FetchRequests.WithLabelValues(station, "empty").Inc()
	case errors.Is(err, ErrCircuitOpen):
		c.metrics.FetchRequests.WithLabelValues(station, "circuit_open").Inc()
	default:
		c.metrics.FetchRequests.WithLabelValues(station, "error").Inc()
		c.logger.Warn("metar fetch failed", "station", station, "error", err)
	}
	return text, err
}

func (c *Client) fetchWithRetry(ctx context.Context, station string) (string, error) {
	u := c.baseURL + "/" + url.PathEscape(strings.ToLower(station))
	delay := c.backoff

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, u)
		})
		if err == nil {
			text, _ := result.(string)
			return text, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if !retryable(err) || attempt >= c.maxRetries {
			return "", fmt.Errorf("fetch %s: %w", station, err)
		}

		c.logger.Debug("retrying metar fetch", "station", station, "attempt", attempt+1, "delay", delay, "error", err)
		if !sharedretry.SleepWithContext(ctx, delay) {
			return "", ctx.Err()
		}
		delay = sharedretry.NextBackoff(delay, c.maxBackoff)
	}
}

func (c *Client) doRequest(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNoReport
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", errRateLimited
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", ErrNoReport
	}
	return text, nil
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return !errors.Is(err, ErrNoReport) && !errors.Is(err, errUnexpected) && !errors.Is(err, context.Canceled)
}
