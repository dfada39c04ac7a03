package iproductrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// IProductRepository is an interface for product postgres repository.
// Reads skip soft-deleted rows unless stated otherwise.
type IProductRepository interface {
	Insert(ctx context.Context, p product.Product) (product.Product, error)
	FindByID(ctx context.Context, id int64, withDeleted bool) (product.Product, error)
	Find(ctx context.Context, q pagination.Query) ([]product.Product, error)
	Count(ctx context.Context, q pagination.Query) (int64, error)
	Update(ctx context.Context, p product.Product) (product.Product, error)
	Delete(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Restore(ctx context.Context, id int64, at time.Time) error
}
