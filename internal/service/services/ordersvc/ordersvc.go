package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	orderrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/orderitem/postgres"
	"github.com/corray333/backend-labs/shop/internal/dal/uow"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// OrderService is a service for managing orders.
type OrderService struct {
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	newUOW        func() unitOfWork
	log           *slog.Logger
	now           func() time.Time
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.orderRepo == nil || s.orderItemRepo == nil || s.newUOW == nil {
		panic("ordersvc: repositories and unit of work are required")
	}

	return s
}

// WithPostgresClient wires the Postgres repositories and transactions.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.orderRepo = orderrepo.NewPostgresOrderRepository(pgClient.Pool())
		s.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(pgClient.Pool())
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient.Pool())
		}
	}
}

// WithRepositories sets the repositories used outside of transactions.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRepositories(orders iorderrepo.IOrderRepository, items iorderitemrepo.IOrderItemRepository) option {
	return func(s *OrderService) {
		s.orderRepo = orders
		s.orderItemRepo = items
	}
}

// WithUnitOfWork sets the factory of transactional units of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(s *OrderService) {
		s.log = log.With("component", "ordersvc")
	}
}

// CreateOrderItem is a line of a new order. PriceCents is the unit price the
// customer was shown and is stored as is.
type CreateOrderItem struct {
	ProductID  int64
	Name       string
	PriceCents int64
	Quantity   int
}

// CreateOrder is the input of Create.
type CreateOrder struct {
	UserID   int64
	Address  string
	Currency currency.Currency
	Items    []CreateOrderItem
}

// validate checks the input and returns the order total. A total that does
// not fit in int64 is a validation error.
func (c CreateOrder) validate() (int64, error) {
	if c.UserID <= 0 {
		return 0, fmt.Errorf("user id is required: %w", errs.ErrValidation)
	}
	if len(c.Items) == 0 {
		return 0, fmt.Errorf("order must have at least one item: %w", errs.ErrValidation)
	}

	var total int64
	for i, it := range c.Items {
		if it.Quantity < 1 {
			return 0, fmt.Errorf("item %d: quantity must be at least 1: %w", i, errs.ErrValidation)
		}
		if it.PriceCents < 0 {
			return 0, fmt.Errorf("item %d: price must not be negative: %w", i, errs.ErrValidation)
		}
		if it.PriceCents > math.MaxInt64/int64(it.Quantity) {
			return 0, fmt.Errorf("item %d: subtotal is too large: %w", i, errs.ErrValidation)
		}
		sub := it.PriceCents * int64(it.Quantity)
		if total > math.MaxInt64-sub {
			return 0, fmt.Errorf("order total is too large: %w", errs.ErrValidation)
		}
		total += sub
	}

	return total, nil
}

// Create places a pending order. The total is the sum of price × quantity
// over the items, and the order and its items are stored in one transaction.
func (s *OrderService) Create(ctx context.Context, in CreateOrder) (order.Order, error) {
	total, err := in.validate()
	if err != nil {
		return order.Order{}, err
	}

	cur := in.Currency
	if cur == "" {
		cur = currency.Default
	}

	now := s.now()
	o := order.Order{
		UserID:           in.UserID,
		TotalAmountCents: total,
		Currency:         cur,
		Status:           order.StatusPending,
		Address:          in.Address,
		CreatedAt:        now,
		UpdatedAt:        now,
		Items:            make([]orderitem.OrderItem, 0, len(in.Items)),
	}
	for _, it := range in.Items {
		item := orderitem.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			CreatedAt:  now,
		}
		o.Items = append(o.Items, item)
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			s.log.ErrorContext(ctx, "Failed to rollback order creation", "error", err)
		}
	}()

	created, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	for i := range created.Items {
		created.Items[i].OrderID = created.ID
	}

	created.Items, err = work.OrderItemRepository().BulkInsert(ctx, created.Items)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, err
	}

	s.log.InfoContext(ctx, "Order created",
		"order_id", created.ID,
		"user_id", created.UserID,
		"total_cents", created.TotalAmountCents,
	)

	return created, nil
}

// FindByID returns an order with its items.
func (s *OrderService) FindByID(ctx context.Context, id int64) (order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.attachItems(ctx, []*order.Order{&o}); err != nil {
		return order.Order{}, err
	}

	return o, nil
}

// FindAll lists orders narrowed by filter, each with its items.
func (s *OrderService) FindAll(
	ctx context.Context,
	filter order.Filter,
	req pagination.Request,
) (pagination.Result[order.Order], error) {
	var filters []pagination.Filter
	if filter.UserID != nil {
		filters = append(filters, pagination.Eq("userId", *filter.UserID))
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return pagination.Result[order.Order]{}, fmt.Errorf("unknown status %q: %w", *filter.Status, errs.ErrValidation)
		}
		filters = append(filters, pagination.Eq("status", filter.Status.String()))
	}

	res, err := pagination.Paginate[order.Order](ctx, s.orderRepo, req,
		pagination.WithFilters(filters...),
		pagination.WithSearchFields("address"),
	)
	if err != nil {
		return res, err
	}

	page := make([]*order.Order, len(res.Data))
	for i := range res.Data {
		page[i] = &res.Data[i]
	}
	if err := s.attachItems(ctx, page); err != nil {
		return pagination.Result[order.Order]{}, err
	}

	return res, nil
}

// FindByUser lists the orders of one user.
func (s *OrderService) FindByUser(
	ctx context.Context,
	userID int64,
	req pagination.Request,
) (pagination.Result[order.Order], error) {
	return s.FindAll(ctx, order.Filter{UserID: &userID}, req)
}

// UpdateStatus moves an order to status next if the transition table allows it.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, next order.Status) (order.Order, error) {
	if !next.Valid() {
		return order.Order{}, fmt.Errorf("unknown status %q: %w", next, errs.ErrValidation)
	}

	current, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	if !current.Status.CanTransitionTo(next) {
		return order.Order{}, fmt.Errorf("order %d cannot move from %s to %s: %w",
			id, current.Status, next, errs.ErrInvalidTransition)
	}

	return s.transition(ctx, current, next)
}

// Cancel cancels an order that has not been shipped yet.
func (s *OrderService) Cancel(ctx context.Context, id int64) (order.Order, error) {
	current, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	if !current.Status.Cancellable() {
		return order.Order{}, fmt.Errorf("order %d in status %s cannot be cancelled: %w",
			id, current.Status, errs.ErrInvalidTransition)
	}

	return s.transition(ctx, current, order.StatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, current order.Order, next order.Status) (order.Order, error) {
	updated, err := s.orderRepo.UpdateStatus(ctx, current.ID, current.Status, next, s.now())
	if err != nil {
		return order.Order{}, err
	}

	if err := s.attachItems(ctx, []*order.Order{&updated}); err != nil {
		return order.Order{}, err
	}

	s.log.InfoContext(ctx, "Order status changed",
		"order_id", updated.ID,
		"from", current.Status,
		"to", updated.Status,
	)

	return updated, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []orderitem.OrderItem{}
	}

	items, err := s.orderItemRepo.FindByOrderIDs(ctx, ids)
	if err != nil {
		return err
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return nil
}
