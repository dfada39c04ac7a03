package product

import (
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
)

// Product is an item of the catalog.
type Product struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	PriceCents  int64             `json:"priceCents"`
	Currency    currency.Currency `json:"currency"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Stock       int               `json:"stock"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	DeletedAt   *time.Time        `json:"deletedAt,omitempty"`
}

// Update holds a partial change. Nil fields are left untouched.
type Update struct {
	Name        *string
	PriceCents  *int64
	Currency    *currency.Currency
	Category    *string
	Description *string
	Stock       *int
}

// Filter narrows a product listing. Nil fields are not applied.
type Filter struct {
	Category      *string
	MinPriceCents *int64
	MaxPriceCents *int64
}
