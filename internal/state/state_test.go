package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

func sampleOrders() []model.Order {
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return []model.Order{
		{ID: "b", OrderDate: "2024-01-15", Description: "Ethanol", Provider: "Sigma", OrderedBy: "ARN", SKU: "ETH-1", Status: model.OrderStatusRequested},
		{ID: "a", OrderDate: "2024-01-15", Description: "Gloves", Provider: "Fisher", OrderedBy: "MA", ProjectCode: "PX", Status: model.OrderStatusOrdered},
		{ID: "c", CreatedAt: base, Description: "Tips", Provider: "Eppendorf", OrderedBy: "ARN", Status: model.OrderStatusReceived, IsReceived: true},
		{ID: "d", OrderDate: "2024-02-01", Description: "Buffer", Provider: "", OrderedBy: "FM", Status: model.OrderStatusRequested},
	}
}

func ids(orders []model.Order) string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return strings.Join(out, ",")
}

func TestSortOrdersTieBreak(t *testing.T) {
	st := New(sampleOrders(), Options{})
	if got := ids(st.View().Page); got != "d,a,b,c" {
		t.Fatalf("unexpected descending order %s", got)
	}

	st.ToggleSortDirection()
	if got := ids(st.View().Page); got != "c,a,b,d" {
		t.Fatalf("unexpected ascending order %s", got)
	}
}

func TestFilterAndSearch(t *testing.T) {
	st := New(sampleOrders(), Options{})

	st.SetSearch("px")
	if got := ids(st.View().Filtered); got != "a" {
		t.Fatalf("search must match project code, got %s", got)
	}

	st.SetSearch(" gloves")
	if got := ids(st.View().Filtered); got != "" {
		t.Fatalf("search term must match verbatim including spaces, got %s", got)
	}
	st.SetSearch("GLOVES")
	if got := ids(st.View().Filtered); got != "a" {
		t.Fatalf("search must ignore case, got %s", got)
	}

	st.SetSearch("")
	if err := st.SetFilter(model.DimensionRequester, []string{"ARN"}); err != nil {
		t.Fatalf("set filter: %v", err)
	}
	if got := ids(st.View().Filtered); got != "b,c" {
		t.Fatalf("unexpected requester filter result %s", got)
	}

	if err := st.SetFilter(model.DimensionDate, []string{"2024-01-10"}); err != nil {
		t.Fatalf("set filter: %v", err)
	}
	if got := ids(st.View().Filtered); got != "c" {
		t.Fatalf("date filter must use created_at fallback, got %s", got)
	}

	if err := st.SetFilter("colour", []string{"x"}); err == nil {
		t.Fatal("expected unknown dimension error")
	}
}

func TestPaginationInvariant(t *testing.T) {
	var orders []model.Order
	for i := 0; i < 23; i++ {
		orders = append(orders, model.Order{ID: fmt.Sprintf("o%02d", i), OrderDate: fmt.Sprintf("2024-03-%02d", i%5+1)})
	}
	st := New(orders, Options{PageSize: 5})
	view := st.View()
	if view.TotalPages != 5 {
		t.Fatalf("expected 5 pages, got %d", view.TotalPages)
	}

	var joined []model.Order
	for p := 1; p <= view.TotalPages; p++ {
		st.SetPage(p)
		page := st.View().Page
		if len(page) > 5 {
			t.Fatalf("page %d has %d orders", p, len(page))
		}
		joined = append(joined, page...)
	}
	if ids(joined) != ids(st.View().Filtered) {
		t.Fatal("pages must reproduce the filtered set")
	}

	st.SetPage(99)
	if got := st.View().CurrentPage; got != 5 {
		t.Fatalf("expected clamp to last page, got %d", got)
	}
	st.SetPage(-3)
	if got := st.View().CurrentPage; got != 1 {
		t.Fatalf("expected clamp to first page, got %d", got)
	}
}

func TestSnapshotIsConsistent(t *testing.T) {
	var orders []model.Order
	for i := 0; i < 120; i++ {
		orders = append(orders, model.Order{ID: fmt.Sprintf("o%03d", i), Description: "Tips"})
	}
	st := New(orders, Options{PageSize: model.PageSizes[0]})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = st.SetPageSize(model.PageSizes[i%2])
			st.SetPage(i % 4)
			st.ToggleSelect(fmt.Sprintf("o%03d", i%120))
		}
	}()

	for i := 0; i < 200; i++ {
		snap := st.Snapshot()
		if snap.View.PageSize != snap.Params.PageSize || snap.View.CurrentPage != snap.Params.Page {
			t.Fatalf("snapshot mixes states: view %d/%d params %d/%d",
				snap.View.CurrentPage, snap.View.PageSize, snap.Params.Page, snap.Params.PageSize)
		}
		if len(snap.View.Page) > snap.Params.PageSize {
			t.Fatalf("page holds %d orders for size %d", len(snap.View.Page), snap.Params.PageSize)
		}
	}
	<-done
}

func TestPageResets(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*OrderState)
	}{
		{"search", func(s *OrderState) { s.SetSearch("e") }},
		{"filter", func(s *OrderState) { _ = s.SetFilter(model.DimensionStatus, []string{"requested"}) }},
		{"group", func(s *OrderState) { _ = s.SetGroupBy(model.GroupByProvider) }},
		{"page size", func(s *OrderState) { _ = s.SetPageSize(2) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := New(sampleOrders(), Options{PageSize: 1})
			st.SetPage(3)
			if st.View().CurrentPage != 3 {
				t.Fatalf("expected page 3 before mutation")
			}
			tc.mutate(st)
			if got := st.Params().Page; got != 1 {
				t.Fatalf("expected page reset to 1, got %d", got)
			}
		})
	}

	st := New(sampleOrders(), Options{PageSize: 1})
	st.SetPage(2)
	st.ToggleSortDirection()
	if got := st.Params().Page; got != 2 {
		t.Fatalf("sorting must keep the page, got %d", got)
	}
}

func TestGroupOrders(t *testing.T) {
	st := New(sampleOrders(), Options{PageSize: 1})
	if err := st.SetGroupBy(model.GroupByProvider); err != nil {
		t.Fatalf("group: %v", err)
	}
	groups := st.View().Groups
	var labels []string
	total := 0
	for _, g := range groups {
		labels = append(labels, g.Label)
		total += len(g.Orders)
	}
	if strings.Join(labels, ",") != "Eppendorf,Fisher,Sigma,Unknown" {
		t.Fatalf("unexpected provider groups %v", labels)
	}
	if total != 4 {
		t.Fatalf("grouping must cover the full filtered set, got %d orders", total)
	}

	_ = st.SetGroupBy(model.GroupByDate)
	groups = st.View().Groups
	if groups[0].Key != "2024-02-01" || groups[0].Label != "01/02/2024" {
		t.Fatalf("expected newest date first, got %+v", groups[0])
	}

	_ = st.SetGroupBy(model.GroupByStatus)
	groups = st.View().Groups
	if groups[0].Label != "Ordered" || groups[len(groups)-1].Label != "Requested" {
		t.Fatalf("unexpected status groups %+v", groups)
	}

	if err := st.SetGroupBy("colour"); err == nil {
		t.Fatal("expected unknown grouping error")
	}
}

func TestFilterOptions(t *testing.T) {
	opts := BuildFilterOptions(sampleOrders())
	if len(opts.Requester) != 3 || opts.Requester[0].Value != "ARN" {
		t.Fatalf("unexpected requesters %+v", opts.Requester)
	}
	if opts.Date[0].Value != "2024-02-01" || opts.Date[len(opts.Date)-1].Value != "2024-01-10" {
		t.Fatalf("dates must be newest first, got %+v", opts.Date)
	}
	if strings.Join(UniqueProviders(sampleOrders()), ",") != "Eppendorf,Fisher,Sigma" {
		t.Fatal("unexpected providers")
	}
}

func TestApplyRemoteChange(t *testing.T) {
	st := New(sampleOrders(), Options{})
	insert := model.InsertEvent{Order: model.Order{ID: "e", Description: "New", OrderDate: "2024-03-01"}}

	if !st.ApplyRemoteChange(insert) {
		t.Fatal("expected first insert to change state")
	}
	once := ids(st.Orders())
	if st.ApplyRemoteChange(insert) {
		t.Fatal("duplicate insert must be a no-op")
	}
	if ids(st.Orders()) != once {
		t.Fatal("duplicate insert changed the collection")
	}

	if !st.ApplyRemoteChange(model.UpdateEvent{ID: "b", Patch: model.OrderPatch{model.ColumnStatus: model.OrderStatusReceived}}) {
		t.Fatal("expected update to apply")
	}
	if st.ApplyRemoteChange(model.UpdateEvent{ID: "zz", Patch: model.OrderPatch{model.ColumnStatus: model.OrderStatusReceived}}) {
		t.Fatal("update of unknown id must be a no-op")
	}

	st.ToggleSelect("a")
	if !st.ApplyRemoteChange(model.DeleteEvent{ID: "a"}) {
		t.Fatal("expected delete to apply")
	}
	if len(st.Selection()) != 0 {
		t.Fatal("deleted order must leave the selection")
	}
	if st.ApplyRemoteChange(model.DeleteEvent{ID: "a"}) {
		t.Fatal("delete of unknown id must be a no-op")
	}

	for _, o := range st.Orders() {
		if o.ID == "b" && o.Status != model.OrderStatusReceived {
			t.Fatalf("update not merged: %+v", o)
		}
	}
	if st.View().TotalCount != 4 {
		t.Fatalf("expected 4 orders, got %d", st.View().TotalCount)
	}
}

func TestSelection(t *testing.T) {
	st := New(sampleOrders(), Options{})

	st.ToggleSelect("a")
	st.ToggleSelectAll([]string{"a", "b"})
	if strings.Join(st.Selection(), ",") != "a,b" {
		t.Fatalf("expected all selected, got %v", st.Selection())
	}
	st.ToggleSelectAll([]string{"a", "b"})
	if len(st.Selection()) != 0 {
		t.Fatalf("expected all deselected, got %v", st.Selection())
	}

	if _, err := st.SelectedOrders(); !errors.Is(err, domainErrors.ErrEmptySelection) {
		t.Fatalf("expected empty selection error, got %v", err)
	}
	st.ToggleSelect("c")
	st.ToggleSelect("d")
	selected, err := st.SelectedOrders()
	if err != nil || ids(selected) != "d,c" {
		t.Fatalf("unexpected selected orders %s %v", ids(selected), err)
	}

	st.Replace(sampleOrders()[:3])
	if strings.Join(st.Selection(), ",") != "c" {
		t.Fatalf("replace must drop vanished selections, got %v", st.Selection())
	}
	st.ClearSelection()
	if len(st.Selection()) != 0 {
		t.Fatal("expected cleared selection")
	}
}

type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("quota") }
func (failingStore) Set(string, []byte) error { return errors.New("quota") }
func (failingStore) Clear(string) error { return errors.New("quota") }

func TestColumnsPersistence(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(ColumnStorageKey, []byte(`[{"id":"description","label":"Old","visible":false},{"id":"gone","label":"X","visible":true}]`))

	st := New(nil, Options{Store: store})
	cols := st.Columns()
	if len(cols) != len(DefaultColumns()) {
		t.Fatalf("expected defaults merged in, got %d columns", len(cols))
	}
	if cols[0].ID != "description" || cols[0].Visible || cols[0].Label != "Description" {
		t.Fatalf("stored column must keep order and visibility, got %+v", cols[0])
	}

	cols[1].Visible = false
	st.UpdateColumns(cols)
	raw, ok, _ := store.Get(ColumnStorageKey)
	if !ok || !strings.Contains(string(raw), `"visible":false`) {
		t.Fatalf("expected layout persisted, got %s", raw)
	}

	st.ResetColumns()
	if _, ok, _ := store.Get(ColumnStorageKey); ok {
		t.Fatal("reset must clear stored layout")
	}
	if st.Columns()[0].ID != "order_date" {
		t.Fatal("reset must restore defaults")
	}
}

func TestColumnsStorageFailuresAreSwallowed(t *testing.T) {
	st := New(nil, Options{Store: failingStore{}})
	if len(st.Columns()) != len(DefaultColumns()) {
		t.Fatal("expected defaults when storage fails")
	}
	st.UpdateColumns(DefaultColumns())
	st.ResetColumns()

	bad := NewMemoryStore()
	_ = bad.Set(ColumnStorageKey, []byte("{corrupt"))
	if New(nil, Options{Store: bad}).Columns()[0].ID != "order_date" {
		t.Fatal("expected defaults for corrupt layout")
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store := FileStore{Dir: filepath.Join(dir, "columns")}
	key := ColumnKey("view/1")

	if _, ok, err := store.Get(key); ok || err != nil {
		t.Fatalf("expected missing key, got %v %v", ok, err)
	}
	if err := store.Set(key, []byte("[]")); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, err := store.Get(key)
	if err != nil || !ok || string(raw) != "[]" {
		t.Fatalf("unexpected get %q %v %v", raw, ok, err)
	}
	entries, _ := os.ReadDir(store.Dir)
	if len(entries) != 1 || strings.ContainsAny(entries[0].Name(), "/:") {
		t.Fatalf("unexpected files %v", entries)
	}
	if err := store.Clear(key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(key); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewMemoryStore(), nil, 10)
	reg.Replace(sampleOrders())

	one := reg.View("one")
	if one.View().TotalCount != 4 {
		t.Fatal("new view must be seeded from the snapshot")
	}
	if reg.View("one") != one {
		t.Fatal("expected same state for same view id")
	}
	two := reg.View("two")

	reg.ApplyRemoteChange(model.DeleteEvent{ID: "a"})
	if one.View().TotalCount != 3 || two.View().TotalCount != 3 || len(reg.Snapshot()) != 3 {
		t.Fatal("remote change must reach every view and the snapshot")
	}

	reg.Replace(sampleOrders()[:1])
	if one.View().TotalCount != 1 {
		t.Fatal("replace must reach every view")
	}

	now := time.Now()
	reg.now = func() time.Time { return now }
	reg.View("one")
	reg.now = func() time.Time { return now.Add(time.Hour) }
	if removed := reg.Sweep(30 * time.Minute); removed != 2 {
		t.Fatalf("expected both idle views removed, got %d", removed)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}
