package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/adapter/vatsim"
	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/couchcryptid/metar-decoder/internal/observability"
	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
)

// SourceTopic labels events produced by the poller, in place of a Kafka topic.
const SourceTopic = "vatsim"

// Poller fetches every configured station on a schedule and queues reports
// whose text changed since the previous poll.
// It implements pipeline.BatchExtractor.
type Poller struct {
	fetcher   domain.Fetcher
	stations  []string
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu       sync.Mutex
	queue    []domain.RawEvent
	lastText map[string]string
	notify   chan struct{}
}

// New creates a Poller for stations. Call Start to begin polling.
func New(fetcher domain.Fetcher, stations []string, interval time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Poller {
	codes := make([]string, len(stations))
	for i, s := range stations {
		codes[i] = strings.ToUpper(s)
	}
	return &Poller{
		fetcher:   fetcher,
		stations:  codes,
		interval:  interval,
		timeout:   30 * time.Second,
		scheduler: gocron.NewScheduler(time.UTC),
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
		lastText:  make(map[string]string),
		notify:    make(chan struct{}, 1),
	}
}

// Start schedules the poll job, running it immediately and then every interval.
func (p *Poller) Start() error {
	if len(p.stations) == 0 {
		return errors.New("poller: no stations configured")
	}

	p.scheduler.SingletonModeAll()
	_, err := p.scheduler.Every(p.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.PollOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule poll job: %w", err)
	}

	p.scheduler.StartAsync()
	p.logger.Info("poller started", "stations", p.stations, "interval", p.interval)
	return nil
}

// Stop stops the scheduler. Queued reports remain available to ExtractBatch.
func (p *Poller) Stop() {
	p.scheduler.Stop()
}

// Close stops polling.
func (p *Poller) Close() error {
	p.Stop()
	return nil
}

// PollOnce fetches all stations concurrently and queues changed reports.
// Failures are logged and counted; they never stop the poller.
func (p *Poller) PollOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, station := range p.stations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pollStation(ctx, station)
		}()
	}
	wg.Wait()
}

func (p *Poller) pollStation(ctx context.Context, station string) {
	text, err := p.fetcher.FetchMETAR(ctx, station)
	if err != nil {
		p.metrics.PollErrors.Inc()
		if errors.Is(err, vatsim.ErrNoReport) {
			p.logger.Debug("no report for station", "station", station)
		} else {
			p.logger.Warn("poll failed", "station", station, "error", err)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastText[station] == text {
		p.logger.Debug("report unchanged", "station", station)
		return
	}
	p.lastText[station] = text
	p.queue = append(p.queue, domain.RawEvent{
		Key:       []byte(station),
		Value:     []byte(text),
		Headers:   map[string]string{"source": SourceTopic},
		Topic:     SourceTopic,
		Timestamp: p.clock.Now().UTC(),
	})

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// ExtractBatch blocks until at least one report is queued, then returns up
// to batchSize of them in poll order.
func (p *Poller) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	for {
		p.mu.Lock()
		if n := len(p.queue); n > 0 {
			n = min(n, batchSize)
			batch := make([]domain.RawEvent, n)
			copy(batch, p.queue[:n])
			p.queue = p.queue[n:]
			p.mu.Unlock()
			return batch, nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.notify:
		}
	}
}

// Pending returns the number of queued reports.
func (p *Poller) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
