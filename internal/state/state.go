package state

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

// Options configures a new OrderState.
type Options struct {
	Store      ColumnStore
	StorageKey string
	Logger     *slog.Logger
	PageSize   int
}

// OrderState owns the order collection and session parameters of one view.
// The derived view is recomputed on the first read after a mutation.
type OrderState struct {
	mu sync.Mutex

	store      ColumnStore
	storageKey string
	logger     *slog.Logger

	orders   []model.Order
	params   Params
	columns  []model.Column
	selected map[string]struct{}

	dirty bool
	view  View
}

// New creates a state seeded with orders.
func New(orders []model.Order, opts Options) *OrderState {
	if opts.Store == nil {
		opts.Store = NopStore{}
	}
	if opts.StorageKey == "" {
		opts.StorageKey = ColumnStorageKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultPageSize
	}

	return &OrderState{
		store:      opts.Store,
		storageKey: opts.StorageKey,
		logger:     opts.Logger,
		orders:     cloneOrders(orders),
		params: Params{
			Filters:       map[model.Dimension][]string{},
			SortDirection: model.SortDesc,
			GroupBy:       model.GroupByNone,
			Page:          1,
			PageSize:      opts.PageSize,
		},
		columns:  loadColumns(opts.Store, opts.StorageKey, opts.Logger),
		selected: make(map[string]struct{}),
		dirty:    true,
	}
}

func cloneOrders(orders []model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)
	return out
}

// Replace swaps the whole order set. Selections of vanished orders are dropped.
func (s *OrderState) Replace(orders []model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = cloneOrders(orders)
	present := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		present[o.ID] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := present[id]; !ok {
			delete(s.selected, id)
		}
	}
	s.dirty = true
}

// SetSearch sets the free text search and returns to the first page.
func (s *OrderState) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Search = term
	s.params.Page = 1
	s.dirty = true
}

// SetFilter replaces the selected values of one dimension. An empty list
// disables the filter.
func (s *OrderState) SetFilter(dim model.Dimension, values []string) error {
	if !dim.Valid() {
		return fmt.Errorf("unknown filter dimension %q", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(values) == 0 {
		delete(s.params.Filters, dim)
	} else {
		s.params.Filters[dim] = append([]string(nil), values...)
	}
	s.params.Page = 1
	s.dirty = true
	return nil
}

// ToggleSortDirection flips between ascending and descending.
func (s *OrderState) ToggleSortDirection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params.SortDirection == model.SortAsc {
		s.params.SortDirection = model.SortDesc
	} else {
		s.params.SortDirection = model.SortAsc
	}
	s.dirty = true
}

// SetGroupBy selects the grouping and returns to the first page.
func (s *OrderState) SetGroupBy(g model.GroupBy) error {
	if !g.Valid() {
		return fmt.Errorf("unknown grouping %q", g)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.GroupBy = g
	s.params.Page = 1
	s.dirty = true
	return nil
}

// SetPage moves to page n. Out of range pages are clamped when the view is read.
func (s *OrderState) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Page = n
	s.dirty = true
}

// SetPageSize changes the page size and returns to the first page.
func (s *OrderState) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("page size must be positive, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.PageSize = n
	s.params.Page = 1
	s.dirty = true
	return nil
}

// UpdateColumns stores a new column layout.
func (s *OrderState) UpdateColumns(cols []model.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = MergeColumns(cols)
	saveColumns(s.store, s.storageKey, s.columns, s.logger)
}

// ResetColumns restores the default layout and forgets the stored one.
func (s *OrderState) ResetColumns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = DefaultColumns()
	if err := s.store.Clear(s.storageKey); err != nil {
		s.logger.Warn("clear columns", slog.String("key", s.storageKey), slog.String("error", err.Error()))
	}
}

// ApplyRemoteChange merges one change feed event. It reports whether the
// collection changed.
func (s *OrderState) ApplyRemoteChange(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, changed := ApplyChange(s.orders, ev)
	if !changed {
		return false
	}
	s.orders = orders
	if del, ok := ev.(model.DeleteEvent); ok {
		delete(s.selected, del.ID)
	}
	s.dirty = true
	return true
}

// ApplyChange integrates ev into orders. Duplicate inserts, and updates or
// deletes of unknown ids, leave orders untouched.
func ApplyChange(orders []model.Order, ev model.ChangeEvent) ([]model.Order, bool) {
	idx := -1
	for i := range orders {
		if orders[i].ID == ev.OrderID() {
			idx = i
			break
		}
	}

	switch e := ev.(type) {
	case model.InsertEvent:
		if idx >= 0 || e.Order.ID == "" {
			return orders, false
		}
		return append(orders, e.Order), true
	case model.UpdateEvent:
		if idx < 0 {
			return orders, false
		}
		e.Patch.Apply(&orders[idx])
		return orders, true
	case model.DeleteEvent:
		if idx < 0 {
			return orders, false
		}
		return append(orders[:idx:idx], orders[idx+1:]...), true
	}
	return orders, false
}

// ToggleSelect flips selection of one order.
func (s *OrderState) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
}

// ToggleSelectAll selects every id unless all of them are already selected,
// in which case they are all deselected.
func (s *OrderState) ToggleSelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := len(ids) > 0
	for _, id := range ids {
		if _, ok := s.selected[id]; !ok {
			all = false
			break
		}
	}
	for _, id := range ids {
		if all {
			delete(s.selected, id)
		} else {
			s.selected[id] = struct{}{}
		}
	}
}

// ClearSelection drops every selected id.
func (s *OrderState) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

// View returns the derived view for the current parameters.
func (s *OrderState) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derive()
}

func (s *OrderState) derive() View {
	if s.dirty {
		s.view = Derive(s.orders, s.params)
		s.params.Page = s.view.CurrentPage
		s.dirty = false
	}
	return s.view
}

// VisibleIDs returns ids on the current page.
func (s *OrderState) VisibleIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.derive().Page
	ids := make([]string, len(page))
	for i, o := range page {
		ids[i] = o.ID
	}
	return ids
}

// Params returns a copy of the session parameters.
func (s *OrderState) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derive()
	return s.params.clone()
}

// Columns returns the current column layout.
func (s *OrderState) Columns() []model.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Column(nil), s.columns...)
}

// Selection returns selected ids in ascending order.
func (s *OrderState) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection()
}

// Snapshot is the derived view together with the parameters, layout and
// selection it was derived under.
type Snapshot struct {
	View      View
	Params    Params
	Columns   []model.Column
	Selection []string
}

// Snapshot reads everything a page needs under one lock.
func (s *OrderState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.derive()
	return Snapshot{
		View:      view,
		Params:    s.params.clone(),
		Columns:   append([]model.Column(nil), s.columns...),
		Selection: s.selection(),
	}
}

func (s *OrderState) selection() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectedOrders returns selected orders in view order. It fails with
// ErrEmptySelection when nothing is selected.
func (s *OrderState) SelectedOrders() ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) == 0 {
		return nil, domainErrors.ErrEmptySelection
	}
	all := cloneOrders(s.orders)
	SortOrders(all, s.params.SortDirection)
	out := make([]model.Order, 0, len(s.selected))
	for _, o := range all {
		if _, ok := s.selected[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Orders returns a copy of the raw collection.
func (s *OrderState) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrders(s.orders)
}
