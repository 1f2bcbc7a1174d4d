package test

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

// OrderRepositoryStub keeps orders in memory. Any *Fn override replaces the
// default behaviour, Err makes every call fail.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders []model.Order
	Err    error

	ListFn      func(context.Context) ([]model.Order, error)
	InsertFn    func(context.Context, []model.Order) error
	UpdateFn    func(context.Context, []string, model.OrderPatch) error
	DeleteFn    func(context.Context, []string) error
	DeleteAllFn func(context.Context) error

	Inserted [][]model.Order
	Updates  []UpdateCall
	Deleted  [][]string
	Wiped    int
}

// UpdateCall records a single Update invocation.
type UpdateCall struct {
	IDs   []string
	Patch model.OrderPatch
}

// NewOrderRepositoryStub seeds the stub with orders, newest first.
func NewOrderRepositoryStub(orders ...model.Order) *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: append([]model.Order(nil), orders...)}
}

// List returns a copy of the stored orders.
func (s *OrderRepositoryStub) List(ctx context.Context) ([]model.Order, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]model.Order{}, s.Orders...), nil
}

// Get returns the order with the given id.
func (s *OrderRepositoryStub) Get(_ context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if idx := s.index(id); idx >= 0 {
		o := s.Orders[idx]
		return &o, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Insert prepends orders, rejecting duplicate ids.
func (s *OrderRepositoryStub) Insert(ctx context.Context, orders []model.Order) error {
	if s.InsertFn != nil {
		return s.InsertFn(ctx, orders)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, o := range orders {
		if s.index(o.ID) >= 0 {
			return domainErrors.ErrAlreadyExists
		}
	}
	s.Inserted = append(s.Inserted, orders)
	s.Orders = append(append([]model.Order{}, orders...), s.Orders...)
	return nil
}

// Update applies patch to every matching order.
func (s *OrderRepositoryStub) Update(ctx context.Context, ids []string, patch model.OrderPatch) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, ids, patch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Updates = append(s.Updates, UpdateCall{IDs: ids, Patch: patch})
	matched := 0
	for _, id := range ids {
		if idx := s.index(id); idx >= 0 {
			patch.Apply(&s.Orders[idx])
			matched++
		}
	}
	if matched == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// Delete removes matching orders.
func (s *OrderRepositoryStub) Delete(ctx context.Context, ids []string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, ids)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Deleted = append(s.Deleted, ids)
	removed := 0
	for _, id := range ids {
		if idx := s.index(id); idx >= 0 {
			s.Orders = append(s.Orders[:idx], s.Orders[idx+1:]...)
			removed++
		}
	}
	if removed == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// DeleteAll wipes the stub.
func (s *OrderRepositoryStub) DeleteAll(ctx context.Context) error {
	if s.DeleteAllFn != nil {
		return s.DeleteAllFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Wiped++
	s.Orders = nil
	return nil
}

func (s *OrderRepositoryStub) index(id string) int {
	for i, o := range s.Orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// ChangeFeedStub replays Events and then returns Err, or blocks until ctx is
// done when Block is set.
type ChangeFeedStub struct {
	Events []model.ChangeEvent
	Err    error
	Block  bool
	Calls  chan struct{}
}

// Listen delivers the configured events.
func (s *ChangeFeedStub) Listen(ctx context.Context, handle func(model.ChangeEvent)) error {
	if s.Calls != nil {
		select {
		case s.Calls <- struct{}{}:
		default:
		}
	}
	for _, ev := range s.Events {
		handle(ev)
	}
	if s.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.Err
}

// HealthCheckerStub returns Err from HealthCheck.
type HealthCheckerStub struct {
	Err error
}

// HealthCheck reports the configured error.
func (s HealthCheckerStub) HealthCheck(context.Context) error {
	return s.Err
}
