// Command decode prints METAR reports in plain language.
//
// Report text comes from the arguments, from stdin (one report per line), or
// is fetched live for each station named with -station.
//
// Usage:
//
//	go run ./cmd/decode "NZWN 251130Z AUTO 35018G32KT 9999 FEW025 14/08 Q1012"
//	echo "NZAA 251130Z 24012KT 9999 -RA FEW018 17/14 Q1009" | go run ./cmd/decode
//	go run ./cmd/decode -station NZWN,NZAA
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/metar-decoder/internal/adapter/vatsim"
	"github.com/couchcryptid/metar-decoder/internal/config"
	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/couchcryptid/metar-decoder/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil))
}

// run executes the command and returns the process exit code. A nil fetcher
// is replaced by the live VATSIM client.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, fetcher domain.Fetcher) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	stations := fs.String("station", "", "comma-separated ICAO codes to fetch live instead of reading text")
	asJSON := fs.Bool("json", false, "print decoded reports as JSON")
	verbose := fs.Bool("v", false, "log fetch details to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := observability.NewTextLogger(stderr, *verbose)

	var reports []domain.Report
	switch {
	case *stations != "":
		if fetcher == nil {
			fetcher = vatsim.NewClient(cfg.VatsimBaseURL, cfg.VatsimTimeout, cfg.VatsimMaxRetries,
				observability.NewMetrics(), logger)
		}
		reports, err = fetchReports(ctx, fetcher, cfg, strings.Split(*stations, ","), logger)
	case fs.NArg() > 0:
		reports, err = decodeLines(cfg, []string{strings.Join(fs.Args(), " ")})
	default:
		var lines []string
		lines, err = readLines(stdin)
		if err == nil {
			reports, err = decodeLines(cfg, lines)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "decode: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(stderr, "decode: %v\n", err)
			return 1
		}
		return 0
	}

	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprint(stdout, domain.RenderReport(r, renderOptions(cfg, r.Station)))
	}
	return 0
}

// fetchReports fetches and decodes each station. A station without a current
// report is rendered as an empty report rather than failing the run.
func fetchReports(ctx context.Context, fetcher domain.Fetcher, cfg *config.Config, codes []string, logger *slog.Logger) ([]domain.Report, error) {
	decoders := domain.NewDecoderSet(cfg.LocalSensors(), cfg.LocalWindStation)

	var reports []domain.Report
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		text, err := fetcher.FetchMETAR(ctx, code)
		if errors.Is(err, vatsim.ErrNoReport) {
			logger.Warn("no report available", "station", code)
			reports = append(reports, domain.Report{Station: code})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", code, err)
		}

		r, err := domain.ParseRawEvent(domain.RawEvent{Key: []byte(code), Value: []byte(text)}, decoders)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		reports = append(reports, domain.EnrichReport(r))
	}
	return reports, nil
}

func decodeLines(cfg *config.Config, lines []string) ([]domain.Report, error) {
	decoders := domain.NewDecoderSet(cfg.LocalSensors(), cfg.LocalWindStation)

	reports := make([]domain.Report, 0, len(lines))
	for _, line := range lines {
		r, err := domain.ParseRawEvent(domain.RawEvent{Value: []byte(line)}, decoders)
		if err != nil {
			return nil, err
		}
		reports = append(reports, domain.EnrichReport(r))
	}
	if len(reports) == 0 {
		return nil, domain.ErrEmptyReport
	}
	return reports, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func renderOptions(cfg *config.Config, station string) domain.RenderOptions {
	opts := domain.RenderOptions{Location: cfg.DisplayLocation}
	if s, ok := cfg.Station(station); ok {
		opts.LocalWindLabel = s.LocalWindLabel
	}
	return opts
}
