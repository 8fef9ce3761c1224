package observability

import (
	"io"
	"log/slog"

	"github.com/couchcryptid/metar-decoder/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT, writing
// JSON (or text) to stdout. It also becomes the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// NewTextLogger writes human-readable logs to w for command-line tools.
// Only warnings and errors are shown unless verbose is set.
func NewTextLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
