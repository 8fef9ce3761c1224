package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/metar-decoder/internal/domain"
)

// ReportTransformer implements Transformer by decoding the METAR text and
// stamping processing and issue times.
type ReportTransformer struct {
	decoders *domain.DecoderSet
	logger   *slog.Logger
}

// NewTransformer creates a ReportTransformer. A nil decoder set decodes every
// station with the default local wind sensor.
func NewTransformer(decoders *domain.DecoderSet, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		decoders: decoders,
		logger:   logger,
	}
}

func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Report, error) {
	report, err := domain.ParseRawEvent(raw, t.decoders)
	if err != nil {
		return domain.Report{}, err
	}

	report = domain.EnrichReport(report)
	if report.Decoded.IsEmpty() {
		t.logger.Debug("no groups decoded", "station", report.Station, "id", report.ID)
	}
	return report, nil
}
