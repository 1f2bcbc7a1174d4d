package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

// ChangeChannel is the NOTIFY channel used by the orders trigger.
const ChangeChannel = "orders_changes"

type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

var connectListener = func(ctx context.Context, dsn string) (listenConn, error) {
	return pgx.Connect(ctx, dsn)
}

type changeFeed struct {
	storage *Storage
}

// Listen subscribes to order changes on a dedicated connection and calls
// handle for every event until ctx is cancelled or the connection fails.
// Inserted and updated rows are read back through the pool. Undecodable
// notices and rows deleted before they could be read are skipped.
func (f *changeFeed) Listen(ctx context.Context, handle func(model.ChangeEvent)) error {
	conn, err := connectListener(ctx, f.storage.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	orders := &orderRepository{storage: f.storage}
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait notification: %w", err)
		}

		notice, err := model.DecodeChangeNotice([]byte(n.Payload))
		if err != nil {
			f.warn("skip change event", err)
			continue
		}

		ev, err := resolveNotice(ctx, orders, notice)
		if errors.Is(err, domainErrors.ErrNotFound) {
			f.warn("skip change event for missing order", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("load changed order: %w", err)
		}
		handle(ev)
	}
}

func resolveNotice(ctx context.Context, orders *orderRepository, n model.ChangeNotice) (model.ChangeEvent, error) {
	if n.Type == model.ChangeDelete {
		return model.DeleteEvent{ID: n.ID}, nil
	}
	o, err := orders.Get(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if n.Type == model.ChangeInsert {
		return model.InsertEvent{Order: *o}, nil
	}
	return model.UpdateEvent{ID: o.ID, Patch: model.PatchFromOrder(*o)}, nil
}

func (f *changeFeed) warn(msg string, err error) {
	if f.storage.logger != nil {
		f.storage.logger.Warn(msg, slog.String("error", err.Error()))
	}
}
