package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/jackc/pgx/v5"
)

const table = "orders"

var columns = []string{
	"id",
	"user_id",
	"total_amount_cents",
	"currency",
	"status",
	"address",
	"created_at",
	"updated_at",
}

var listColumns = postgres.Columns{
	Sortable: map[string]string{
		"id":          "id",
		"userId":      "user_id",
		"totalAmount": "total_amount_cents",
		"status":      "status",
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
	},
	Searchable: map[string]string{
		"address": "address",
	},
	Filterable: map[string]string{
		"userId": "user_id",
		"status": "status",
	},
	DefaultOrder: []string{"id ASC"},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// OrderDal represents order data access layer model
type OrderDal struct {
	ID               int64
	UserID           int64
	TotalAmountCents int64
	Currency         string
	Status           string
	Address          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() (order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return order.Order{}, err
	}
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return order.Order{}, err
	}

	return order.Order{
		ID:               o.ID,
		UserID:           o.UserID,
		TotalAmountCents: o.TotalAmountCents,
		Currency:         cur,
		Status:           status,
		Address:          o.Address,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Items:            []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var d OrderDal
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.TotalAmountCents,
		&d.Currency,
		&d.Status,
		&d.Address,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	return d.ToModel()
}

type PostgresOrderRepository struct {
	conn postgres.Conn
}

func NewPostgresOrderRepository(conn postgres.Conn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert stores an order header and returns it with its generated id.
// Items are kept as given so the caller can attach the order id to them.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := psql.Insert(table).
		Columns("user_id", "total_amount_cents", "currency", "status", "address", "created_at", "updated_at").
		Values(o.UserID, o.TotalAmountCents, o.Currency.String(), o.Status.String(), o.Address, o.CreatedAt, o.UpdatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	created, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", postgres.MapError(err))
	}
	created.Items = append(created.Items, o.Items...)

	return created, nil
}

func (r *PostgresOrderRepository) FindByID(ctx context.Context, id int64) (order.Order, error) {
	query, args, err := psql.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to find order %d: %w", id, postgres.MapError(err))
	}

	return o, nil
}

func findQuery(q pagination.Query) (string, []any, error) {
	b, err := listColumns.Page(psql.Select(columns...).From(table), q)
	if err != nil {
		return "", nil, err
	}

	return b.ToSql()
}

func countQuery(q pagination.Query) (string, []any, error) {
	b, err := listColumns.Count(psql.Select("COUNT(*)").From(table), q)
	if err != nil {
		return "", nil, err
	}

	return b.ToSql()
}

// Find retrieves one page of orders based on filter criteria
func (r *PostgresOrderRepository) Find(ctx context.Context, q pagination.Query) ([]order.Order, error) {
	query, args, err := findQuery(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	return orders, nil
}

func (r *PostgresOrderRepository) Count(ctx context.Context, q pagination.Query) (int64, error) {
	query, args, err := countQuery(q)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return total, nil
}

func updateStatusQuery(id int64, from, to order.Status, at time.Time) (string, []any, error) {
	return psql.Update(table).
		Set("status", to.String()).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": from.String()}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
}

// UpdateStatus applies a transition only if the stored status still equals from.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	from, to order.Status,
	at time.Time,
) (order.Order, error) {
	query, args, err := updateStatusQuery(id, from, to, at)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, fmt.Errorf("order %d is no longer %s: %w", id, from, errs.ErrConflict)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to update order %d status: %w", id, postgres.MapError(err))
	}

	return updated, nil
}
