package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/state"
	"github.com/polkiloo/labtracker/internal/usecase"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Login(password string) (string, error)
	VerifyPassword(password string) bool
	ParseToken(token string) error
}

// ViewFacade hands out the per-browser view state.
type ViewFacade interface {
	View(viewID string) *state.OrderState
}

// OrderFacade encapsulates order mutations exposed via HTTP.
type OrderFacade interface {
	ViewFacade
	QuickReceive(ctx context.Context, id string) error
	RevertReceive(ctx context.Context, id string) error
	DeleteOrder(ctx context.Context, id string) error
	UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) error
	SaveOrder(ctx context.Context, order model.Order) (model.Order, error)
	ReceiveSelected(ctx context.Context, viewID string) (int, error)
	DeleteSelected(ctx context.Context, viewID string) (int, error)
	DeleteAll(ctx context.Context, password string) error
}

// ImportFacade provides spreadsheet import and export.
type ImportFacade interface {
	PreviewImport(r io.Reader) (*usecase.ImportPreview, error)
	Import(ctx context.Context, r io.Reader, req usecase.ImportRequest) (*usecase.ImportReport, error)
	Export(viewID string) ([]byte, string, error)
}

// FeedFacade streams change events and reports backend health.
type FeedFacade interface {
	ServeFeed(w http.ResponseWriter, r *http.Request, viewID string) error
	HealthCheck(ctx context.Context) error
}

// LabFacade aggregates the full set of operations used across handlers.
type LabFacade interface {
	AuthFacade
	OrderFacade
	ImportFacade
	FeedFacade
}
