package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

type viewEntry struct {
	state    *OrderState
	lastSeen time.Time
}

// Registry keeps one OrderState per browser view together with the latest
// snapshot used to seed new views.
type Registry struct {
	mu       sync.Mutex
	snapshot []model.Order
	views    map[string]*viewEntry

	store    ColumnStore
	logger   *slog.Logger
	pageSize int
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(store ColumnStore, logger *slog.Logger, pageSize int) *Registry {
	if store == nil {
		store = NopStore{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		views:    make(map[string]*viewEntry),
		store:    store,
		logger:   logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// ColumnKey returns the storage key of a view's column layout.
func ColumnKey(viewID string) string {
	return ColumnStorageKey + ":" + viewID
}

// View returns the state for viewID, creating it from the snapshot when needed.
func (r *Registry) View(viewID string) *OrderState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.views[viewID]; ok {
		e.lastSeen = r.now()
		return e.state
	}
	st := New(r.snapshot, Options{
		Store:      r.store,
		StorageKey: ColumnKey(viewID),
		Logger:     r.logger,
		PageSize:   r.pageSize,
	})
	r.views[viewID] = &viewEntry{state: st, lastSeen: r.now()}
	return st
}

// Replace sets a new snapshot and pushes it into every view.
func (r *Registry) Replace(orders []model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = cloneOrders(orders)
	for _, e := range r.views {
		e.state.Replace(orders)
	}
}

// ApplyRemoteChange merges ev into the snapshot and every view.
func (r *Registry) ApplyRemoteChange(ev model.ChangeEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed bool
	r.snapshot, changed = ApplyChange(r.snapshot, ev)
	for _, e := range r.views {
		e.state.ApplyRemoteChange(ev)
	}
	return changed
}

// Snapshot returns a copy of the latest order set.
func (r *Registry) Snapshot() []model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrders(r.snapshot)
}

// Sweep drops views idle for longer than maxIdle and reports how many were
// removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, e := range r.views {
		if e.lastSeen.Before(cutoff) {
			delete(r.views, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
