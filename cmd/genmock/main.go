// Command genmock decodes the raw METAR fixture and writes the expected
// decoded reports used by the pipeline tests. It runs the real domain
// package, so the fixture always matches current decoder behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -in data/mock/metar_reports.txt \
//	  -out data/mock/decoded_reports.json
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/jonboulle/clockwork"
)

// processedAt is the fixed processing time stamped on every fixture report.
var processedAt = time.Date(2024, time.May, 26, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "data/mock/metar_reports.txt", "raw METAR fixture, one report per line")
	out := flag.String("out", "data/mock/decoded_reports.json", "output path for decoded JSON fixture")
	flag.Parse()

	// Set a fixed clock for reproducible ProcessedAt and IssuedAt values.
	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	lines, err := readLines(*in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *in, err)
	}

	reports := make([]domain.Report, 0, len(lines))
	for i, line := range lines {
		parsed, err := domain.ParseRawEvent(domain.RawEvent{Value: []byte(line)}, nil)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		reports = append(reports, domain.EnrichReport(parsed))
	}
	log.Printf("decoded %d reports", len(reports))

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(reports)
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	stations       map[string]int
	severities     map[domain.WindSeverity]int
	phenomena      map[domain.Phenomenon]int
	withStation    int
	withNCD        int
	withoutVis     int
	auto           int
	unresolvedTime int
}

func collectStats(reports []domain.Report) statsResult {
	s := statsResult{
		stations:   map[string]int{},
		severities: map[domain.WindSeverity]int{},
		phenomena:  map[domain.Phenomenon]int{},
	}
	for i := range reports {
		r := &reports[i]
		s.stations[r.Station]++
		if r.Decoded.Wind != nil {
			s.severities[r.Decoded.Wind.Severity]++
		}
		for _, p := range r.Decoded.Weather {
			s.phenomena[p]++
		}
		if r.Decoded.StationWind != nil {
			s.withStation++
		}
		if r.Decoded.Clouds != nil && r.Decoded.Clouds.NoCloudsDetected {
			s.withNCD++
		}
		if r.Decoded.Visibility == nil {
			s.withoutVis++
		}
		if r.Auto {
			s.auto++
		}
		if r.IssuedAt.IsZero() {
			s.unresolvedTime++
		}
	}
	return s
}

func printStats(reports []domain.Report) {
	stats := collectStats(reports)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(reports))

	stations := make([]string, 0, len(stats.stations))
	for s := range stats.stations {
		stations = append(stations, s)
	}
	sort.Strings(stations)
	fmt.Printf("Stations (%d):", len(stations))
	for _, s := range stations {
		fmt.Printf(" %s=%d", s, stats.stations[s])
	}
	fmt.Println()

	fmt.Printf("Wind severity: none=%d, breezy=%d, strong=%d, severe=%d\n",
		stats.severities[domain.SeverityNone], stats.severities[domain.SeverityBreezy],
		stats.severities[domain.SeverityStrong], stats.severities[domain.SeveritySevere])
	fmt.Printf("Rain: light=%d, heavy=%d, plain=%d, recent=%d\n",
		stats.phenomena[domain.PhenomenonLightRain], stats.phenomena[domain.PhenomenonHeavyRain],
		stats.phenomena[domain.PhenomenonRain], stats.phenomena[domain.PhenomenonRecentRain])
	fmt.Printf("With station wind: %d\n", stats.withStation)
	fmt.Printf("No clouds detected: %d\n", stats.withNCD)
	fmt.Printf("Without visibility: %d\n", stats.withoutVis)
	fmt.Printf("Automated: %d\n", stats.auto)
	fmt.Printf("Unresolved issue time: %d\n", stats.unresolvedTime)
}
