package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/domain/repository"
)

// OrderUseCase encapsulates order lifecycle logic.
type OrderUseCase struct {
	orders   repository.OrderRepository
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository) *OrderUseCase {
	return &OrderUseCase{
		orders:   orders,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// List returns every stored order, newest first.
func (u *OrderUseCase) List(ctx context.Context) ([]model.Order, error) {
	return u.orders.List(ctx)
}

func (u *OrderUseCase) receivedPatch() model.OrderPatch {
	return model.OrderPatch{
		model.ColumnStatus:       model.OrderStatusReceived,
		model.ColumnReceivedDate: u.now().Format(model.DateLayout),
		model.ColumnIsReceived:   true,
	}
}

// QuickReceive marks an order as received today.
func (u *OrderUseCase) QuickReceive(ctx context.Context, id string) error {
	if id == "" {
		return domainErrors.ErrNotFound
	}
	return u.orders.Update(ctx, []string{id}, u.receivedPatch())
}

// RevertReceive moves a received order back to ordered and clears its
// receipt details.
func (u *OrderUseCase) RevertReceive(ctx context.Context, id string) error {
	if id == "" {
		return domainErrors.ErrNotFound
	}
	return u.orders.Update(ctx, []string{id}, model.OrderPatch{
		model.ColumnStatus:          model.OrderStatusOrdered,
		model.ColumnReceivedDate:    nil,
		model.ColumnStorageLocation: nil,
		model.ColumnIsReceived:      false,
	})
}

// BulkReceive marks every listed order as received today.
func (u *OrderUseCase) BulkReceive(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return domainErrors.ErrEmptySelection
	}
	return u.orders.Update(ctx, ids, u.receivedPatch())
}

// BulkDelete removes every listed order.
func (u *OrderUseCase) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return domainErrors.ErrEmptySelection
	}
	return u.orders.Delete(ctx, ids)
}

// DeleteOne removes a single order.
func (u *OrderUseCase) DeleteOne(ctx context.Context, id string) error {
	if id == "" {
		return domainErrors.ErrNotFound
	}
	return u.orders.Delete(ctx, []string{id})
}

// DeleteAll wipes the order table.
func (u *OrderUseCase) DeleteAll(ctx context.Context) error {
	return u.orders.DeleteAll(ctx)
}

// Upsert inserts order when it has no id and updates every mutable column
// otherwise. The stored order is returned.
func (u *OrderUseCase) Upsert(ctx context.Context, order model.Order) (model.Order, error) {
	order = normalizeOrder(order)
	if err := u.check(order); err != nil {
		return model.Order{}, err
	}

	if order.ID == "" {
		order.ID = u.newID()
		if order.Status == "" {
			order.Status = model.OrderStatusRequested
		}
		if err := u.orders.Insert(ctx, []model.Order{order}); err != nil {
			return model.Order{}, err
		}
		return order, nil
	}

	if order.Status == "" {
		order.Status = model.OrderStatusRequested
	}
	if err := u.orders.Update(ctx, []string{order.ID}, model.PatchFromOrder(order)); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// Update applies a partial change to one order.
func (u *OrderUseCase) Update(ctx context.Context, id string, patch model.OrderPatch) error {
	if id == "" {
		return domainErrors.ErrNotFound
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", domainErrors.ErrInvalidOrder)
	}
	if v, ok := patch[model.ColumnStatus]; ok {
		if v == nil {
			return fmt.Errorf("%w: status cannot be cleared", domainErrors.ErrInvalidStatus)
		}
	}
	return u.orders.Update(ctx, []string{id}, patch)
}

// InsertMany stores orders in one batch. Missing ids are generated and a
// missing status defaults to requested. Required fields are not enforced so
// imports may keep incomplete rows, but dates must be YYYY-MM-DD.
func (u *OrderUseCase) InsertMany(ctx context.Context, orders []model.Order) ([]model.Order, error) {
	if len(orders) == 0 {
		return []model.Order{}, nil
	}
	out := make([]model.Order, len(orders))
	for i, o := range orders {
		o = normalizeOrder(o)
		if o.ID == "" {
			o.ID = u.newID()
		}
		if o.Status == "" {
			o.Status = model.OrderStatusRequested
		}
		if !o.Status.Valid() {
			return nil, fmt.Errorf("order %d: %w", i+1, domainErrors.ErrInvalidStatus)
		}
		if err := checkDates(o); err != nil {
			return nil, fmt.Errorf("order %d: %w", i+1, err)
		}
		out[i] = o
	}
	if err := u.orders.Insert(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeOrder(o model.Order) model.Order {
	o.Description = strings.TrimSpace(o.Description)
	o.Provider = strings.TrimSpace(o.Provider)
	o.OrderedBy = strings.TrimSpace(o.OrderedBy)
	o.SKU = strings.ToUpper(strings.TrimSpace(o.SKU))
	o.ReceivedDate = strings.TrimSpace(o.ReceivedDate)
	o.OrderDate = strings.TrimSpace(o.OrderDate)
	return o
}

func (u *OrderUseCase) check(o model.Order) error {
	if err := u.validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			if hasTag(verrs, "oneof") {
				return fmt.Errorf("%w: %s", domainErrors.ErrInvalidStatus, strings.Join(fields, ", "))
			}
			return fmt.Errorf("%w: %s", domainErrors.ErrInvalidOrder, strings.Join(fields, ", "))
		}
		return err
	}
	if o.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative unit price", domainErrors.ErrInvalidOrder)
	}
	return checkDates(o)
}

func checkDates(o model.Order) error {
	for _, d := range []string{o.OrderDate, o.ReceivedDate} {
		if err := checkDate(d); err != nil {
			return err
		}
	}
	return nil
}

// checkDate accepts "" or YYYY-MM-DD.
func checkDate(d string) error {
	if d == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, d); err != nil {
		return fmt.Errorf("%w: bad date %q", domainErrors.ErrInvalidOrder, d)
	}
	return nil
}

func hasTag(errs validator.ValidationErrors, tag string) bool {
	for _, fe := range errs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}
