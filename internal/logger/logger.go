package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/polkiloo/labtracker/internal/config"
)

const serviceName = "labtracker"

// New creates a preconfigured slog.Logger. Production emits JSON at info
// level, every other environment emits text at debug level.
func New(cfg *config.Config) *slog.Logger {
	return NewTo(os.Stdout, cfg)
}

// NewTo is New writing to w.
func NewTo(w io.Writer, cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.Production() {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler).With(slog.String("service", serviceName))
}
