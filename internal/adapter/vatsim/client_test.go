package vatsim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMETAR = "NZWN 251130Z AUTO 35018G32KT 9999 FEW025 14/08 Q1012"

func testClient(baseURL string, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		breaker:    newBreaker(),
		maxRetries: maxRetries,
		backoff:    time.Millisecond,
		maxBackoff: 5 * time.Millisecond,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_FetchMETAR_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nzwn", r.URL.Path)
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		_, _ = io.WriteString(w, "\n  "+testMETAR+"\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	text, err := c.FetchMETAR(context.Background(), " nzwn ")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("NZWN", "success")), 0)
}

func TestClient_FetchMETAR_NoReport(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty body", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "  \n") }},
		{"not found", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			c := testClient(srv.URL, 3)
			_, err := c.FetchMETAR(context.Background(), "ZZZZ")
			require.ErrorIs(t, err, ErrNoReport)
			assert.Equal(t, int32(1), calls.Load(), "missing reports are not retried")
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("ZZZZ", "empty")), 0)
		})
	}
}

func TestClient_FetchMETAR_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, testMETAR)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	text, err := c.FetchMETAR(context.Background(), "NZWN")
	require.NoError(t, err)
	assert.Equal(t, testMETAR, text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchMETAR_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	_, err := c.FetchMETAR(context.Background(), "NZWN")
	require.Error(t, err)
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("NZWN", "error")), 0)
}

func TestClient_FetchMETAR_UnexpectedStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	_, err := c.FetchMETAR(context.Background(), "NZWN")
	require.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchMETAR_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	// The default breaker trips after more than five consecutive failures.
	for range 6 {
		_, err := c.FetchMETAR(context.Background(), "NZWN")
		require.ErrorIs(t, err, errServerError)
	}

	_, err := c.FetchMETAR(context.Background(), "NZWN")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(6), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("NZWN", "circuit_open")), 0)
}

func TestClient_FetchMETAR_NoReportDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	for range 10 {
		_, err := c.FetchMETAR(context.Background(), "ZZZZ")
		require.ErrorIs(t, err, ErrNoReport)
	}
}

func TestClient_FetchMETAR_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, testMETAR)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, 2).FetchMETAR(ctx, "NZWN")
	require.ErrorIs(t, err, context.Canceled)
}
