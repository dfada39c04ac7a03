package order

import (
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/orderitem"
)

// Order represents a customer order with its line items.
type Order struct {
	ID               int64                 `json:"id"`
	UserID           int64                 `json:"userId"`
	TotalAmountCents int64                 `json:"totalAmountCents"`
	Currency         currency.Currency     `json:"currency"`
	Status           Status                `json:"status"`
	Address          string                `json:"address"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	Items            []orderitem.OrderItem `json:"items"`
}

// Filter narrows an order listing. Nil fields are not applied.
type Filter struct {
	UserID *int64
	Status *Status
}
