package iproductcache

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

// IProductCache is a read-through cache of single products.
// Get reports a miss with found == false and a nil error.
type IProductCache interface {
	Get(ctx context.Context, id int64) (p product.Product, found bool, err error)
	Set(ctx context.Context, p product.Product) error
	Invalidate(ctx context.Context, id int64) error
}
