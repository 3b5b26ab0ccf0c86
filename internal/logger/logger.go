package logger

import (
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New returns a human readable colored logger in dev and a JSON logger
// otherwise.
func New(env string, w io.Writer) *slog.Logger {
	if env == "dev" {
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.DebugLevel,
			ReportTimestamp: true,
			TimeFormat:      time.Stamp,
		})
		return slog.New(handler)
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h)
}
