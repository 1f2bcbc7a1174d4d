package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/feed"
	"github.com/polkiloo/labtracker/internal/state"
	testhelpers "github.com/polkiloo/labtracker/internal/test"
	"github.com/polkiloo/labtracker/internal/usecase"
)

func labOrder(id, desc string) model.Order {
	return model.Order{
		ID:          id,
		CreatedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Provider:    "Sigma",
		OrderedBy:   "ARN",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(3),
		Status:      model.OrderStatusOrdered,
	}
}

func newFacade(t *testing.T, orders ...model.Order) (*LabFacade, *testhelpers.OrderRepositoryStub, *state.Registry) {
	t.Helper()
	repo := testhelpers.NewOrderRepositoryStub(orders...)
	authUC, err := usecase.NewAuthUseCase("pipette", testhelpers.HasherStub{}, testhelpers.StrategyStub{})
	if err != nil {
		t.Fatalf("auth usecase: %v", err)
	}
	orderUC := usecase.NewOrderUseCase(repo)
	registry := state.NewRegistry(state.NewMemoryStore(), nil, 50)
	facade := NewLabFacade(FacadeDeps{
		Auth:     authUC,
		Orders:   orderUC,
		Imports:  usecase.NewImportUseCase(orderUC),
		Registry: registry,
		Hub:      feed.NewHub(nil, nil),
		Health:   testhelpers.HealthCheckerStub{},
		ViewIdle: time.Minute,
	})
	if err := facade.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return facade, repo, registry
}

func TestLabFacadeAuth(t *testing.T) {
	facade, _, _ := newFacade(t)

	token, err := facade.Login("pipette")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if err := facade.ParseToken(token); err != nil {
		t.Fatalf("token must be accepted: %v", err)
	}
	if _, err := facade.Login("nope"); !errors.Is(err, domainErrors.ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if facade.VerifyPassword("nope") || !facade.VerifyPassword("pipette") {
		t.Fatal("unexpected password verification result")
	}
}

func TestLabFacadeMutationsRefreshViews(t *testing.T) {
	facade, repo, _ := newFacade(t, labOrder("a", "Ethanol"), labOrder("b", "Gloves"))
	ctx := context.Background()
	view := facade.View("v1")

	if err := facade.QuickReceive(ctx, "a"); err != nil {
		t.Fatalf("quick receive: %v", err)
	}
	if got := view.Orders()[0]; !got.IsReceived {
		t.Fatalf("view not refreshed after receive: %+v", got)
	}

	if err := facade.RevertReceive(ctx, "a"); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if got := view.Orders()[0]; got.IsReceived || got.Status != model.OrderStatusOrdered {
		t.Fatalf("view not refreshed after revert: %+v", got)
	}

	if err := facade.UpdateOrder(ctx, "b", model.OrderPatch{model.ColumnStorageLocation: "Shelf"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := view.Orders()[1]; got.StorageLocation != "Shelf" {
		t.Fatalf("view not refreshed after update: %+v", got)
	}

	saved, err := facade.SaveOrder(ctx, model.Order{Description: "Tips", Provider: "Fisher", OrderedBy: "MA", Quantity: 2})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || len(view.Orders()) != 3 {
		t.Fatalf("saved order missing from view: %+v", view.Orders())
	}

	if err := facade.DeleteOrder(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(view.Orders()) != 2 || len(repo.Orders) != 2 {
		t.Fatalf("delete not reflected")
	}
}

func TestLabFacadeFailedMutationLeavesViewUntouched(t *testing.T) {
	facade, repo, _ := newFacade(t, labOrder("a", "Ethanol"))
	view := facade.View("v1")

	repo.UpdateFn = func(context.Context, []string, model.OrderPatch) error { return errors.New("db down") }
	if err := facade.QuickReceive(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}
	if view.Orders()[0].IsReceived {
		t.Fatal("local state must not change when persistence fails")
	}
}

func TestLabFacadeReloadKeepsConcurrentRemoteChanges(t *testing.T) {
	facade, repo, registry := newFacade(t, labOrder("a", "Ethanol"))
	view := facade.View("v1")

	listing := make(chan struct{})
	release := make(chan struct{})
	repo.ListFn = func(context.Context) ([]model.Order, error) {
		snapshot := []model.Order{labOrder("a", "Ethanol")}
		close(listing)
		<-release
		return snapshot, nil
	}

	done := make(chan error, 1)
	go func() { done <- facade.Reload(context.Background()) }()

	<-listing
	facade.ApplyRemoteChange(model.InsertEvent{Order: labOrder("b", "Gloves")})
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("reload: %v", err)
	}

	ids := map[string]bool{}
	for _, o := range view.Orders() {
		ids[o.ID] = true
	}
	if len(ids) != 2 || !ids["a"] || !ids["b"] {
		t.Fatalf("remote insert lost by reload, got %v", ids)
	}
	if len(registry.Snapshot()) != 2 {
		t.Fatalf("registry snapshot lost remote insert: %d", len(registry.Snapshot()))
	}

	repo.ListFn = nil
	if err := facade.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(view.Orders()) != 1 {
		t.Fatalf("events must not be replayed once reloads are idle, got %d orders", len(view.Orders()))
	}
}

func TestLabFacadeSelectionOperations(t *testing.T) {
	facade, repo, _ := newFacade(t, labOrder("a", "Ethanol"), labOrder("b", "Gloves"), labOrder("c", "Tips"))
	ctx := context.Background()
	view := facade.View("v1")

	if _, err := facade.ReceiveSelected(ctx, "v1"); !errors.Is(err, domainErrors.ErrEmptySelection) {
		t.Fatalf("expected empty selection, got %v", err)
	}

	view.ToggleSelect("a")
	view.ToggleSelect("c")
	n, err := facade.ReceiveSelected(ctx, "v1")
	if err != nil || n != 2 {
		t.Fatalf("receive selected: %d %v", n, err)
	}
	if len(view.Selection()) != 0 {
		t.Fatal("selection must be cleared after bulk receive")
	}

	view.ToggleSelect("b")
	n, err = facade.DeleteSelected(ctx, "v1")
	if err != nil || n != 1 {
		t.Fatalf("delete selected: %d %v", n, err)
	}
	if len(repo.Orders) != 2 || len(view.Orders()) != 2 {
		t.Fatalf("unexpected orders after bulk delete")
	}
}

func TestLabFacadeDeleteAllRequiresPassword(t *testing.T) {
	facade, repo, _ := newFacade(t, labOrder("a", "Ethanol"))
	ctx := context.Background()

	if err := facade.DeleteAll(ctx, "wrong"); !errors.Is(err, domainErrors.ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if repo.Wiped != 0 {
		t.Fatal("wipe must not run with a bad password")
	}
	if err := facade.DeleteAll(ctx, "pipette"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(facade.View("v1").Orders()) != 0 {
		t.Fatal("views must be empty after wipe")
	}
}

func TestLabFacadeImport(t *testing.T) {
	facade, repo, _ := newFacade(t)
	csv := "Ordered By,Provider,Description\nFM,Merck,Acetone\n"

	preview, err := facade.PreviewImport(strings.NewReader(csv))
	if err != nil || len(preview.Headers) != 3 {
		t.Fatalf("preview: %+v %v", preview, err)
	}

	report, err := facade.Import(context.Background(), strings.NewReader(csv), usecase.ImportRequest{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Imported) != 1 || len(repo.Orders) != 1 || len(facade.View("v1").Orders()) != 1 {
		t.Fatalf("imported order missing")
	}
}

func TestLabFacadeExport(t *testing.T) {
	facade, _, _ := newFacade(t, labOrder("a", "Ethanol"), labOrder("b", "Gloves"))
	facade.now = func() time.Time { return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) }

	data, name, err := facade.Export("v1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "orders_export_2024-05-06.xlsx" {
		t.Fatalf("unexpected file name %q", name)
	}
	rows := readSheet(t, data)
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}

	facade.View("v1").ToggleSelect("b")
	data, _, err = facade.Export("v1")
	if err != nil {
		t.Fatalf("export selection: %v", err)
	}
	rows = readSheet(t, data)
	if len(rows) != 2 || rows[1][3] != "Gloves" {
		t.Fatalf("expected only the selected order, got %v", rows)
	}

	empty, _, _ := newFacade(t)
	if _, _, err := empty.Export("v1"); !errors.Is(err, domainErrors.ErrNothingToExport) {
		t.Fatalf("expected nothing to export, got %v", err)
	}
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Orders")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestLabFacadeRemoteChangesAndSweep(t *testing.T) {
	facade, _, registry := newFacade(t, labOrder("a", "Ethanol"))
	view := facade.View("v1")

	facade.ApplyRemoteChange(model.InsertEvent{Order: labOrder("z", "Remote")})
	if len(view.Orders()) != 2 || len(registry.Snapshot()) != 2 {
		t.Fatalf("remote insert not applied")
	}
	facade.ApplyRemoteChange(model.DeleteEvent{ID: "a"})
	if len(view.Orders()) != 1 {
		t.Fatalf("remote delete not applied")
	}

	facade.viewIdle = -time.Second
	if n := facade.SweepIdleViews(); n != 1 {
		t.Fatalf("expected one idle view, got %d", n)
	}
}

func TestLabFacadeHealthCheck(t *testing.T) {
	facade, _, _ := newFacade(t)
	if err := facade.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	facade.health = testhelpers.HealthCheckerStub{Err: errors.New("down")}
	if err := facade.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
}
