package orders

import (
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/services/ordersvc"
)

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID  int64  `json:"productId"  validate:"gt=0"`
	Name       string `json:"name"       validate:"required"`
	PriceCents int64  `json:"priceCents" validate:"gte=0"`
	Quantity   int    `json:"quantity"   validate:"gt=0"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	UserID   int64                      `json:"userId"   validate:"gt=0"`
	Address  string                     `json:"address"  validate:"required"`
	Currency string                     `json:"currency"`
	Items    []itemInCreateOrderRequest `json:"items"    validate:"required,min=1,dive"`
}

// toInput converts createOrderRequest to the service input.
func (r *createOrderRequest) toInput() (ordersvc.CreateOrder, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return ordersvc.CreateOrder{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	items := make([]ordersvc.CreateOrderItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = ordersvc.CreateOrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		}
	}

	return ordersvc.CreateOrder{
		UserID:   r.UserID,
		Address:  r.Address,
		Currency: cur,
		Items:    items,
	}, nil
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type listOrdersQuery struct {
	UserID int64  `schema:"userId" validate:"gte=0"`
	Status string `schema:"status"`
}

func (q *listOrdersQuery) toFilter() (order.Filter, error) {
	var f order.Filter
	if q.UserID > 0 {
		f.UserID = &q.UserID
	}
	if q.Status != "" {
		status, err := order.ParseStatus(q.Status)
		if err != nil {
			return order.Filter{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
		}
		f.Status = &status
	}

	return f, nil
}
