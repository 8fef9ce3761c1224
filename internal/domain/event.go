package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyReport is returned when a message carries no report text.
var ErrEmptyReport = errors.New("empty report")

// stationRe matches a leading ICAO code, optionally after the report type.
var stationRe = regexp.MustCompile(`^(?:(?:METAR|SPECI)\s+)?([A-Z]{4})\b`)

// reportIDSpace namespaces report IDs so they never collide with other
// name-based UUIDs.
var reportIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://metar.vatsim.net/"))

// RawEvent represents an unprocessed message from the source topic or poller.
// Value holds the raw METAR text; Key holds the station code when known.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Report is a decoded METAR together with where and when it was issued.
type Report struct {
	ID          string        `json:"id"`
	Station     string        `json:"station"`
	Raw         string        `json:"raw"`
	Decoded     DecodedReport `json:"decoded"`
	IssueTime   string        `json:"issue_time,omitempty"` // DDHHMMZ token as reported
	IssuedAt    time.Time     `json:"issued_at,omitzero"`
	Auto        bool          `json:"auto"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// SourceLabel reports whether the observation was automated.
func (r Report) SourceLabel() string {
	if r.Auto {
		return "AUTO"
	}
	return "MANUAL"
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// DecoderSet picks the decoder for a station's local wind sensor.
type DecoderSet struct {
	byStation map[string]*Decoder
	fallback  *Decoder
}

// NewDecoderSet builds decoders for each station -> local sensor entry. Stations
// without an entry use a decoder for fallbackSensor.
func NewDecoderSet(localSensors map[string]string, fallbackSensor string) *DecoderSet {
	s := &DecoderSet{
		byStation: make(map[string]*Decoder, len(localSensors)),
		fallback:  NewDecoder(fallbackSensor),
	}
	for station, sensor := range localSensors {
		s.byStation[strings.ToUpper(station)] = NewDecoder(sensor)
	}
	return s
}

// For returns the decoder for station. A nil set yields the default decoder.
func (s *DecoderSet) For(station string) *Decoder {
	if s == nil {
		return defaultDecoder
	}
	if d, ok := s.byStation[strings.ToUpper(station)]; ok {
		return d
	}
	return s.fallback
}

// StationOf returns the station for a raw message: the message key when set,
// otherwise the leading ICAO code of the text.
func StationOf(key []byte, text string) string {
	if k := strings.TrimSpace(string(key)); k != "" {
		return strings.ToUpper(k)
	}
	if m := stationRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		return m[1]
	}
	return ""
}

// ParseRawEvent decodes a RawEvent's text into a Report. Only an empty message
// is an error; anything else decodes to a report with as many groups as matched.
func ParseRawEvent(raw RawEvent, decoders *DecoderSet) (Report, error) {
	text := strings.TrimSpace(string(raw.Value))
	if text == "" {
		return Report{}, fmt.Errorf("parse raw event: %w", ErrEmptyReport)
	}

	station := StationOf(raw.Key, text)
	issueToken, _ := FindIssueTime(text)

	return Report{
		ID:        ReportID(station, issueToken, text),
		Station:   station,
		Raw:       text,
		Decoded:   decoders.For(station).Decode(text),
		IssueTime: issueToken,
		Auto:      strings.Contains(text, "AUTO"),
	}, nil
}

// EnrichReport stamps the processing time and resolves the issue time against
// that same instant.
func EnrichReport(report Report) Report {
	now := clock.Now().UTC()
	report.ProcessedAt = now
	if report.IssueTime != "" {
		if t, ok := ResolveReportTime(report.IssueTime, now); ok {
			report.IssuedAt = t
		}
	}
	return report
}

// ReportID produces a deterministic ID from the station, issue time and text.
// Reprocessing the same report yields the same ID, so downstream upserts stay
// idempotent.
func ReportID(station, issueToken, text string) string {
	return uuid.NewSHA1(reportIDSpace, []byte(station+"|"+issueToken+"|"+text)).String()
}

// SerializeReport marshals a Report into an OutputEvent keyed by report ID.
func SerializeReport(report Report) (OutputEvent, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(report.ID),
		Value: data,
		Headers: map[string]string{
			"station":      report.Station,
			"processed_at": report.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
