package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger returns a logger at level ("debug", "info", ...). Format
// "json" writes structured lines for log collectors; anything else writes
// the human-readable console form.
func SetupLogger(level, format string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}
	if format == "json" {
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339Nano
	}
	logger := log.NewWithOptions(os.Stderr, opts)
	log.SetDefault(logger)
	return logger, nil
}
