package products

import (
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/services/productsvc"
)

type createProductRequest struct {
	Name        string `json:"name"        validate:"required,max=200"`
	PriceCents  int64  `json:"priceCents"  validate:"gte=0"`
	Currency    string `json:"currency"`
	Category    string `json:"category"    validate:"max=100"`
	Description string `json:"description"`
	Stock       int    `json:"stock"       validate:"gte=0"`
}

func (r *createProductRequest) toInput() productsvc.CreateProduct {
	return productsvc.CreateProduct{
		Name:        r.Name,
		PriceCents:  r.PriceCents,
		Currency:    r.Currency,
		Category:    r.Category,
		Description: r.Description,
		Stock:       r.Stock,
	}
}

// updateProductRequest carries only the fields to change.
type updateProductRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=200"`
	PriceCents  *int64  `json:"priceCents"  validate:"omitempty,gte=0"`
	Currency    *string `json:"currency"`
	Category    *string `json:"category"    validate:"omitempty,max=100"`
	Description *string `json:"description"`
	Stock       *int    `json:"stock"       validate:"omitempty,gte=0"`
}

func (r *updateProductRequest) toUpdate() product.Update {
	upd := product.Update{
		Name:        r.Name,
		PriceCents:  r.PriceCents,
		Category:    r.Category,
		Description: r.Description,
		Stock:       r.Stock,
	}
	if r.Currency != nil {
		cur := currency.Currency(*r.Currency)
		upd.Currency = &cur
	}

	return upd
}

type listProductsQuery struct {
	Category string `schema:"category"`
	MinPrice *int64 `schema:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice *int64 `schema:"maxPrice" validate:"omitempty,gte=0"`
}

func (q *listProductsQuery) toFilter() product.Filter {
	f := product.Filter{
		MinPriceCents: q.MinPrice,
		MaxPriceCents: q.MaxPrice,
	}
	if q.Category != "" {
		f.Category = &q.Category
	}

	return f
}
