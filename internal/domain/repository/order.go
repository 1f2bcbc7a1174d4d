package repository

import (
	"context"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	List(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	Insert(ctx context.Context, orders []model.Order) error
	Update(ctx context.Context, ids []string, patch model.OrderPatch) error
	Delete(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
}
