package state

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/config"
)

// Module provides the per-view state registry.
var Module = fx.Provide(newRegistry)

func newRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	var store ColumnStore = NewMemoryStore()
	if cfg.ColumnsDir != "" {
		store = FileStore{Dir: cfg.ColumnsDir}
	}
	return NewRegistry(store, logger, cfg.DefaultPageSize)
}
