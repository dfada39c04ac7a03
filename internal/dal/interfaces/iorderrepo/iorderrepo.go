package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// IOrderRepository is an interface for order postgres repository.
// Returned orders carry no items, those come from IOrderItemRepository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	FindByID(ctx context.Context, id int64) (order.Order, error)
	Find(ctx context.Context, q pagination.Query) ([]order.Order, error)
	Count(ctx context.Context, q pagination.Query) (int64, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// errs.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to order.Status, at time.Time) (order.Order, error)
}
