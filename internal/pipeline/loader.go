package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/metar-decoder/internal/domain"
)

// FanOut loads every batch into each of its loaders in order. The first
// failure stops the batch so the pipeline retries it; loaders after a
// partial success may therefore see the same batch twice and must tolerate
// replays (report IDs are deterministic).
type FanOut []BatchLoader

func (f FanOut) LoadBatch(ctx context.Context, reports []domain.Report) error {
	for i, l := range f {
		if err := l.LoadBatch(ctx, reports); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
