package iorderitemrepo

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/models/orderitem"
)

// IOrderItemRepository is an interface for order item postgres repository.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	FindByOrderIDs(ctx context.Context, orderIDs []int64) ([]orderitem.OrderItem, error)
}
