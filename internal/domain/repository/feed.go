package repository

import (
	"context"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// ChangeFeed streams order changes in delivery order until ctx is done or the
// subscription fails.
type ChangeFeed interface {
	Listen(ctx context.Context, handle func(model.ChangeEvent)) error
}
