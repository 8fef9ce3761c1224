// Command validate checks the decoded METAR fixture against the raw fixture
// and the current decoder. It reports fixture drift (a decoder change that
// was not followed by go run ./cmd/genmock) and values outside the JSON
// contract consumers rely on.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw data/mock/metar_reports.txt \
//	  -decoded data/mock/decoded_reports.json
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawPath := flag.String("raw", "data/mock/metar_reports.txt", "raw METAR fixture")
	decodedPath := flag.String("decoded", "data/mock/decoded_reports.json", "decoded JSON fixture")
	flag.Parse()

	if code := run(*rawPath, *decodedPath); code != 0 {
		os.Exit(code)
	}
}

func run(rawPath, decodedPath string) int {
	// Set a fixed clock matching genmock for ProcessedAt reproducibility.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 26, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== METAR Fixture Validation ===")
	fmt.Println()

	lines, err := readLines(rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw fixture: %v\n", err)
		return 1
	}

	reports, err := loadJSON[domain.Report](decodedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load decoded fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateParity(lines, reports),
		validateDecoderDrift(lines, reports),
		validateContract(reports),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw, %d decoded\n", len(lines), len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

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

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Parity ──
// Every raw line has exactly one decoded report, in order.

func validateParity(lines []string, reports []domain.Report) *phase {
	p := &phase{name: "Phase 1: Parity (raw vs decoded)"}

	if len(lines) != len(reports) {
		p.errorf("count: %d raw lines, %d decoded reports", len(lines), len(reports))
	}
	for i := range min(len(lines), len(reports)) {
		if reports[i].Raw != lines[i] {
			p.errorf("record %d: raw text %q does not match fixture line %q", i, reports[i].Raw, lines[i])
		}
	}
	return p
}

// ── Phase 2: Decoder drift ──
// Re-decodes every raw line and compares it with the stored report.

func validateDecoderDrift(lines []string, reports []domain.Report) *phase {
	p := &phase{name: "Phase 2: Decoder Drift (re-decode)"}

	for i := range min(len(lines), len(reports)) {
		parsed, err := domain.ParseRawEvent(domain.RawEvent{Value: []byte(lines[i])}, nil)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		got := domain.EnrichReport(parsed)
		if diff := cmp.Diff(reports[i], got); diff != "" {
			p.errorf("record %d (%s %s) drifted (-fixture +decoder):\n%s", i, got.Station, got.IssueTime, diff)
		}
	}
	return p
}

// ── Phase 3: Contract ──
// Checks enum values and field shapes consumers depend on.

var (
	stationPattern   = regexp.MustCompile(`^[A-Z]{4}$`)
	issueTimePattern = regexp.MustCompile(`^\d{6}Z$`)

	contractSeverities = map[domain.WindSeverity]bool{
		domain.SeverityNone: true, domain.SeverityBreezy: true,
		domain.SeverityStrong: true, domain.SeveritySevere: true,
	}
	contractPhenomena = map[domain.Phenomenon]bool{
		domain.PhenomenonLightRain: true, domain.PhenomenonHeavyRain: true,
		domain.PhenomenonRain: true, domain.PhenomenonRecentRain: true,
	}
	contractCoverage = map[domain.CloudCoverage]bool{
		domain.CoverageFew: true, domain.CoverageScattered: true,
		domain.CoverageBroken: true, domain.CoverageOvercast: true,
	}
)

func validateContract(reports []domain.Report) *phase {
	p := &phase{name: "Phase 3: Contract (JSON values)"}
	for i := range reports {
		checkRecord(p, i, &reports[i])
	}
	return p
}

func checkRecord(p *phase, i int, r *domain.Report) {
	pf := func(format string, args ...any) {
		p.errorf("record %d (ID %s): "+format, append([]any{i, r.ID}, args...)...)
	}

	if id, err := uuid.Parse(r.ID); err != nil {
		pf("id is not a UUID: %v", err)
	} else if id.Version() != 5 {
		pf("id version %d, expected 5", id.Version())
	} else if want := domain.ReportID(r.Station, r.IssueTime, r.Raw); r.ID != want {
		pf("id does not match station/issue time/raw text (expected %s)", want)
	}

	if !stationPattern.MatchString(r.Station) {
		pf("station %q is not a four-letter ICAO code", r.Station)
	}
	if r.IssueTime != "" && !issueTimePattern.MatchString(r.IssueTime) {
		pf("issue_time %q is not DDHHMMZ", r.IssueTime)
	}
	if r.IssueTime != "" && r.IssuedAt.IsZero() {
		pf("issue_time %q set but issued_at is zero", r.IssueTime)
	}
	if r.ProcessedAt.IsZero() {
		pf("processed_at is zero")
	}
	if r.Auto != strings.Contains(r.Raw, "AUTO") {
		pf("auto=%t does not match raw text", r.Auto)
	}

	checkDecoded(pf, &r.Decoded)
}

func checkDecoded(pf func(string, ...any), d *domain.DecodedReport) {
	if d.Wind != nil {
		if !contractSeverities[d.Wind.Severity] {
			pf("wind severity %q not in enum", d.Wind.Severity)
		}
		if d.Wind.DirectionDeg > 360 {
			pf("wind direction %d out of range", d.Wind.DirectionDeg)
		}
	}
	if d.StationWind != nil && !contractSeverities[d.StationWind.Severity] {
		pf("station wind severity %q not in enum", d.StationWind.Severity)
	}
	for _, ph := range d.Weather {
		if !contractPhenomena[ph] {
			pf("weather %q not in enum", ph)
		}
	}
	if d.Clouds != nil {
		if d.Clouds.NoCloudsDetected && len(d.Clouds.Layers) > 0 {
			pf("clouds has both layers and no_clouds_detected")
		}
		for _, l := range d.Clouds.Layers {
			if !contractCoverage[l.Coverage] {
				pf("cloud coverage %q not in enum", l.Coverage)
			}
		}
	}
	if (d.TemperatureC == nil) != (d.DewPointC == nil) {
		pf("temperature and dew point must be set together")
	}
}
