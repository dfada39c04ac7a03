package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	ID         int64
	OrderID    int64
	ProductID  int64
	Name       string
	PriceCents int64
	Quantity   int
	CreatedAt  pgtype.Timestamptz
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:         oi.ID,
		OrderID:    oi.OrderID,
		ProductID:  oi.ProductID,
		Name:       oi.Name,
		PriceCents: oi.PriceCents,
		Quantity:   oi.Quantity,
		CreatedAt:  oi.CreatedAt.Time,
	}
}

func scanOrderItem(row pgx.CollectableRow) (orderitem.OrderItem, error) {
	var dal OrderItemDal
	err := row.Scan(
		&dal.ID,
		&dal.OrderID,
		&dal.ProductID,
		&dal.Name,
		&dal.PriceCents,
		&dal.Quantity,
		&dal.CreatedAt,
	)
	if err != nil {
		return orderitem.OrderItem{}, err
	}

	return dal.ToModel(), nil
}

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.Conn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const bulkInsertSQL = `
	INSERT INTO order_items (order_id, product_id, name, price_cents, quantity, created_at)
	SELECT order_id, product_id, name, price_cents, quantity, created_at
	FROM unnest($1::bigint[], $2::bigint[], $3::text[], $4::bigint[], $5::int[], $6::timestamptz[])
		WITH ORDINALITY AS t(order_id, product_id, name, price_cents, quantity, created_at, ord)
	ORDER BY ord
	RETURNING id, order_id, product_id, name, price_cents, quantity, created_at
`

// BulkInsert inserts order items in one statement and returns them with their IDs,
// in the order they were given.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	items []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	orderIDs := make([]int64, len(items))
	productIDs := make([]int64, len(items))
	names := make([]string, len(items))
	prices := make([]int64, len(items))
	quantities := make([]int32, len(items))
	createdAts := make([]time.Time, len(items))

	for i, it := range items {
		orderIDs[i] = it.OrderID
		productIDs[i] = it.ProductID
		names[i] = it.Name
		prices[i] = it.PriceCents
		quantities[i] = int32(it.Quantity)
		createdAts[i] = it.CreatedAt
	}

	rows, err := r.conn.Query(ctx, bulkInsertSQL, orderIDs, productIDs, names, prices, quantities, createdAts)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", postgres.MapError(err))
	}

	result, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order items: %w", postgres.MapError(err))
	}

	return result, nil
}

func (r *PostgresOrderItemRepository) findByOrderIDsQuery(orderIDs []int64) (string, []any, error) {
	return r.sb.
		Select("id", "order_id", "product_id", "name", "price_cents", "quantity", "created_at").
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id ASC", "id ASC").
		ToSql()
}

// FindByOrderIDs returns the items of the given orders, grouped by order and
// kept in insertion order within each.
func (r *PostgresOrderItemRepository) FindByOrderIDs(
	ctx context.Context,
	orderIDs []int64,
) ([]orderitem.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	sql, args, err := r.findByOrderIDsQuery(orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	result, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order items: %w", err)
	}

	return result, nil
}
