package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/domain/repository"
	"github.com/polkiloo/labtracker/internal/feed"
	"github.com/polkiloo/labtracker/internal/spreadsheet"
	"github.com/polkiloo/labtracker/internal/state"
	"github.com/polkiloo/labtracker/internal/usecase"
)

// LabFacade ties the use cases to the per-view state and the browser feed.
// Every successful mutation reloads the order set so views only ever show
// stored data.
type LabFacade struct {
	auth     *usecase.AuthUseCase
	orders   *usecase.OrderUseCase
	imports  *usecase.ImportUseCase
	registry *state.Registry
	hub      *feed.Hub
	health   repository.HealthChecker
	viewIdle time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// mu orders remote events against reloads. Events arriving while a
	// List is in flight are kept in pending and replayed over its snapshot.
	mu      sync.Mutex
	loading int
	pending []model.ChangeEvent
}

// FacadeDeps groups LabFacade collaborators.
type FacadeDeps struct {
	Auth     *usecase.AuthUseCase
	Orders   *usecase.OrderUseCase
	Imports  *usecase.ImportUseCase
	Registry *state.Registry
	Hub      *feed.Hub
	Health   repository.HealthChecker
	ViewIdle time.Duration
	Logger   *slog.Logger
}

func NewLabFacade(d FacadeDeps) *LabFacade {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LabFacade{
		auth:     d.Auth,
		orders:   d.Orders,
		imports:  d.Imports,
		registry: d.Registry,
		hub:      d.Hub,
		health:   d.Health,
		viewIdle: d.ViewIdle,
		logger:   logger,
		now:      time.Now,
	}
}

func (f *LabFacade) Login(password string) (string, error) {
	return f.auth.Login(password)
}

func (f *LabFacade) VerifyPassword(password string) bool {
	return f.auth.VerifyPassword(password)
}

func (f *LabFacade) ParseToken(token string) error {
	return f.auth.ParseToken(token)
}

func (f *LabFacade) View(viewID string) *state.OrderState {
	return f.registry.View(viewID)
}

// Reload replaces every view's order set with the stored orders. Remote
// changes delivered while the orders are being read are applied again on top
// of the new set.
func (f *LabFacade) Reload(ctx context.Context) error {
	f.mu.Lock()
	f.loading++
	f.mu.Unlock()

	orders, err := f.orders.List(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading--
	if err == nil {
		f.registry.Replace(orders)
		for _, ev := range f.pending {
			f.registry.ApplyRemoteChange(ev)
		}
	}
	if f.loading == 0 {
		f.pending = nil
	}
	return err
}

func (f *LabFacade) afterMutation(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if rerr := f.Reload(ctx); rerr != nil {
		f.logger.Error("reload after mutation failed", slog.String("error", rerr.Error()))
	}
	return nil
}

func (f *LabFacade) QuickReceive(ctx context.Context, id string) error {
	return f.afterMutation(ctx, f.orders.QuickReceive(ctx, id))
}

func (f *LabFacade) RevertReceive(ctx context.Context, id string) error {
	return f.afterMutation(ctx, f.orders.RevertReceive(ctx, id))
}

func (f *LabFacade) DeleteOrder(ctx context.Context, id string) error {
	return f.afterMutation(ctx, f.orders.DeleteOne(ctx, id))
}

func (f *LabFacade) UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) error {
	return f.afterMutation(ctx, f.orders.Update(ctx, id, patch))
}

func (f *LabFacade) SaveOrder(ctx context.Context, order model.Order) (model.Order, error) {
	stored, err := f.orders.Upsert(ctx, order)
	return stored, f.afterMutation(ctx, err)
}

// ReceiveSelected marks the view's selection as received and clears it.
func (f *LabFacade) ReceiveSelected(ctx context.Context, viewID string) (int, error) {
	st := f.registry.View(viewID)
	ids := st.Selection()
	if err := f.afterMutation(ctx, f.orders.BulkReceive(ctx, ids)); err != nil {
		return 0, err
	}
	st.ClearSelection()
	return len(ids), nil
}

// DeleteSelected removes the view's selection and clears it.
func (f *LabFacade) DeleteSelected(ctx context.Context, viewID string) (int, error) {
	st := f.registry.View(viewID)
	ids := st.Selection()
	if err := f.afterMutation(ctx, f.orders.BulkDelete(ctx, ids)); err != nil {
		return 0, err
	}
	st.ClearSelection()
	return len(ids), nil
}

// DeleteAll wipes every order after checking the lab password again.
func (f *LabFacade) DeleteAll(ctx context.Context, password string) error {
	if !f.auth.VerifyPassword(password) {
		return domainErrors.ErrInvalidPassword
	}
	return f.afterMutation(ctx, f.orders.DeleteAll(ctx))
}

func (f *LabFacade) PreviewImport(r io.Reader) (*usecase.ImportPreview, error) {
	return f.imports.Preview(r)
}

func (f *LabFacade) Import(ctx context.Context, r io.Reader, req usecase.ImportRequest) (*usecase.ImportReport, error) {
	report, err := f.imports.Import(ctx, r, req)
	if err != nil {
		return report, err
	}
	return report, f.afterMutation(ctx, nil)
}

// Export renders the view's selection, or its filtered orders when nothing
// is selected, as a workbook.
func (f *LabFacade) Export(viewID string) ([]byte, string, error) {
	st := f.registry.View(viewID)
	orders, err := st.SelectedOrders()
	if errors.Is(err, domainErrors.ErrEmptySelection) {
		orders = st.View().Filtered
	} else if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := spreadsheet.Export(&buf, orders); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), spreadsheet.ExportFileName(f.now()), nil
}

// ApplyRemoteChange merges a feed event into every view and forwards it to
// connected browsers.
func (f *LabFacade) ApplyRemoteChange(ev model.ChangeEvent) {
	f.mu.Lock()
	if f.loading > 0 {
		f.pending = append(f.pending, ev)
	}
	f.registry.ApplyRemoteChange(ev)
	f.mu.Unlock()
	if f.hub != nil {
		f.hub.Broadcast(ev)
	}
}

func (f *LabFacade) SweepIdleViews() int {
	return f.registry.Sweep(f.viewIdle)
}

func (f *LabFacade) ServeFeed(w http.ResponseWriter, r *http.Request, viewID string) error {
	return f.hub.ServeWS(w, r, viewID)
}

func (f *LabFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}
