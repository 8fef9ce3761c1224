package domain

import "context"

// Fetcher retrieves the latest raw METAR text for a station.
type Fetcher interface {
	// FetchMETAR returns the trimmed report text for an ICAO station code.
	FetchMETAR(ctx context.Context, station string) (string, error)
}
