package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	dsn    string
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, dsn: dsn, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Orders returns the order repository.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

// Feed returns the LISTEN/NOTIFY backed change feed.
func (s *Storage) Feed() repository.ChangeFeed {
	return &changeFeed{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            order_date DATE,
            description TEXT NOT NULL DEFAULT '',
            sku TEXT,
            provider TEXT NOT NULL DEFAULT '',
            ordered_by TEXT NOT NULL DEFAULT '',
            project_code TEXT,
            po_number TEXT,
            quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 0),
            unit_price NUMERIC NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
            status TEXT NOT NULL DEFAULT 'requested'
                CHECK (status IN ('requested', 'ordered', 'received', 'partially_received', 'cancelled')),
            received_date DATE,
            storage_location TEXT,
            is_received BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at DESC)`,
		`CREATE OR REPLACE FUNCTION notify_orders_change() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('` + ChangeChannel + `', json_build_object(
                'eventType', TG_OP,
                'id', CASE WHEN TG_OP = 'DELETE' THEN OLD.id ELSE NEW.id END
            )::text);
            RETURN NULL;
        END;
        $$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS orders_notify ON orders`,
		`CREATE TRIGGER orders_notify AFTER INSERT OR UPDATE OR DELETE ON orders
            FOR EACH ROW EXECUTE FUNCTION notify_orders_change()`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderRepository implementation ---

const orderColumns = `id::text, created_at, COALESCE(order_date::text, ''), description,
                      COALESCE(sku, ''), provider, ordered_by, COALESCE(project_code, ''),
                      COALESCE(po_number, ''), quantity, unit_price::text, status,
                      COALESCE(received_date::text, ''), COALESCE(storage_location, ''), is_received`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o     model.Order
		price string
	)
	err := row.Scan(&o.ID, &o.CreatedAt, &o.OrderDate, &o.Description, &o.SKU, &o.Provider, &o.OrderedBy,
		&o.ProjectCode, &o.PONumber, &o.Quantity, &price, &o.Status, &o.ReceivedDate, &o.StorageLocation, &o.IsReceived)
	if err != nil {
		return model.Order{}, err
	}
	if o.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return model.Order{}, fmt.Errorf("parse unit price: %w", err)
	}
	return o, nil
}

func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1::uuid`
	o, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Insert(ctx context.Context, orders []model.Order) error {
	const query = `INSERT INTO orders (id, order_date, description, sku, provider, ordered_by, project_code,
                       po_number, quantity, unit_price, status, received_date, storage_location, is_received)
                   VALUES ($1::uuid, NULLIF($2, '')::date, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''),
                       NULLIF($8, ''), $9, $10::numeric, $11, NULLIF($12, '')::date, NULLIF($13, ''), $14)`
	if len(orders) == 0 {
		return nil
	}

	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		for _, o := range orders {
			_, err := tx.Exec(ctx, query, o.ID, o.OrderDate, o.Description, o.SKU, o.Provider, o.OrderedBy,
				o.ProjectCode, o.PONumber, o.Quantity, o.UnitPrice.String(), string(o.Status), o.ReceivedDate,
				o.StorageLocation, o.IsReceived)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return fmt.Errorf("order %s: %w", o.ID, domainErrors.ErrAlreadyExists)
				}
				return err
			}
		}
		return nil
	})
}

var columnCasts = map[string]string{
	model.ColumnOrderDate:    "::date",
	model.ColumnReceivedDate: "::date",
	model.ColumnUnitPrice:    "::numeric",
}

func patchArg(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return v.String()
	case model.OrderStatus:
		return string(v)
	case string:
		if v == "" {
			return nil
		}
		return v
	}
	return val
}

func buildUpdate(ids []string, patch model.OrderPatch) (string, []any, error) {
	cols := patch.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		if !model.IsPatchColumn(col) {
			return "", nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownColumn, col)
		}
		args = append(args, patchArg(patch[col]))
		sets = append(sets, fmt.Sprintf("%s=$%d%s", col, len(args), columnCasts[col]))
	}
	args = append(args, ids)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = ANY($%d::uuid[])", strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func (r *orderRepository) Update(ctx context.Context, ids []string, patch model.OrderPatch) error {
	if len(ids) == 0 || len(patch) == 0 {
		return nil
	}
	query, args, err := buildUpdate(ids, patch)
	if err != nil {
		return err
	}
	tag, err := r.storage.pool.Exec(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, ids []string) error {
	const query = `DELETE FROM orders WHERE id = ANY($1::uuid[])`
	if len(ids) == 0 {
		return nil
	}
	tag, err := r.storage.pool.Exec(ctx, query, ids)
	if err != nil {
		if isInvalidUUID(err) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) DeleteAll(ctx context.Context) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM orders`)
	return err
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
