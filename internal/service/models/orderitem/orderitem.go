package orderitem

import (
	"time"
)

// OrderItem is a line item captured when the order was placed.
// Name and PriceCents are a snapshot and do not follow later product changes.
type OrderItem struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"orderId"`
	ProductID  int64     `json:"productId"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}

