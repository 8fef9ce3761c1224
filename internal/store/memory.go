// Package store keeps recently decoded reports in memory for the HTTP API.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/metar-decoder/internal/domain"
)

// ErrNotFound is returned when no report is stored for a station.
var ErrNotFound = errors.New("no report for station")

// MemoryStore is a concurrency-safe per-station history of decoded reports.
// It implements pipeline.BatchLoader.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string][]domain.Report
	maxHistory int
}

// NewMemoryStore creates a store keeping at most maxHistory reports per
// station. If maxHistory is <= 0, history is unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]domain.Report),
		maxHistory: maxHistory,
	}
}

// Save appends a report to its station's history and enforces retention.
// A report already held under the same ID is not stored twice.
func (s *MemoryStore) Save(report domain.Report) {
	key := strings.ToUpper(report.Station)

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.data[key]
	if slices.ContainsFunc(history, func(r domain.Report) bool { return r.ID == report.ID }) {
		return
	}
	history = append(history, report)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = slices.Clone(history[len(history)-s.maxHistory:])
	}
	s.data[key] = history
}

// LoadBatch saves every report in the batch.
func (s *MemoryStore) LoadBatch(_ context.Context, reports []domain.Report) error {
	for _, r := range reports {
		s.Save(r)
	}
	return nil
}

// Latest returns the most recently stored report for a station.
func (s *MemoryStore) Latest(station string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[strings.ToUpper(station)]
	if len(history) == 0 {
		return domain.Report{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// History returns a station's stored reports, oldest first.
func (s *MemoryStore) History(station string) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[strings.ToUpper(station)]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	return slices.Clone(history), nil
}

// Stations returns the stations with stored reports, sorted.
func (s *MemoryStore) Stations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stations := make([]string, 0, len(s.data))
	for k := range s.data {
		stations = append(stations, k)
	}
	slices.Sort(stations)
	return stations
}
