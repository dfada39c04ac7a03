package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/jackc/pgx/v5"
)

const table = "products"

var columns = []string{
	"id",
	"name",
	"price_cents",
	"currency",
	"category",
	"description",
	"stock",
	"created_at",
	"updated_at",
	"deleted_at",
}

var listColumns = postgres.Columns{
	Sortable: map[string]string{
		"id":        "id",
		"name":      "name",
		"price":     "price_cents",
		"category":  "category",
		"stock":     "stock",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	Searchable: map[string]string{
		"name":        "name",
		"description": "description",
	},
	Filterable: map[string]string{
		"category": "category",
		"price":    "price_cents",
		"currency": "currency",
	},
	DefaultOrder: []string{"id ASC"},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var notDeleted = sq.Eq{"deleted_at": nil}

// ProductDal represents product data access layer model
type ProductDal struct {
	ID          int64
	Name        string
	PriceCents  int64
	Currency    string
	Category    string
	Description string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// ToModel converts ProductDal to service layer Product model
func (d *ProductDal) ToModel() (product.Product, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return product.Product{}, err
	}

	return product.Product{
		ID:          d.ID,
		Name:        d.Name,
		PriceCents:  d.PriceCents,
		Currency:    cur,
		Category:    d.Category,
		Description: d.Description,
		Stock:       d.Stock,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		DeletedAt:   d.DeletedAt,
	}, nil
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var d ProductDal
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.PriceCents,
		&d.Currency,
		&d.Category,
		&d.Description,
		&d.Stock,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return product.Product{}, err
	}

	return d.ToModel()
}

// PostgresProductRepository stores the catalog in the products table.
type PostgresProductRepository struct {
	conn postgres.Conn
}

func NewPostgresProductRepository(conn postgres.Conn) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
	}
}

func (r *PostgresProductRepository) Insert(ctx context.Context, p product.Product) (product.Product, error) {
	query, args, err := psql.Insert(table).
		Columns("name", "price_cents", "currency", "category", "description", "stock", "created_at", "updated_at").
		Values(p.Name, p.PriceCents, p.Currency.String(), p.Category, p.Description, p.Stock, p.CreatedAt, p.UpdatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	created, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to insert product: %w", postgres.MapError(err))
	}

	return created, nil
}

func (r *PostgresProductRepository) FindByID(ctx context.Context, id int64, withDeleted bool) (product.Product, error) {
	b := psql.Select(columns...).From(table).Where(sq.Eq{"id": id})
	if !withDeleted {
		b = b.Where(notDeleted)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build select query: %w", err)
	}

	p, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to find product %d: %w", id, postgres.MapError(err))
	}

	return p, nil
}

func findQuery(q pagination.Query) (string, []any, error) {
	b, err := listColumns.Page(psql.Select(columns...).From(table).Where(notDeleted), q)
	if err != nil {
		return "", nil, err
	}

	return b.ToSql()
}

func countQuery(q pagination.Query) (string, []any, error) {
	b, err := listColumns.Count(psql.Select("COUNT(*)").From(table).Where(notDeleted), q)
	if err != nil {
		return "", nil, err
	}

	return b.ToSql()
}

func (r *PostgresProductRepository) Find(ctx context.Context, q pagination.Query) ([]product.Product, error) {
	query, args, err := findQuery(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	return products, nil
}

func (r *PostgresProductRepository) Count(ctx context.Context, q pagination.Query) (int64, error) {
	query, args, err := countQuery(q)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}

func (r *PostgresProductRepository) Update(ctx context.Context, p product.Product) (product.Product, error) {
	query, args, err := psql.Update(table).
		Set("name", p.Name).
		Set("price_cents", p.PriceCents).
		Set("currency", p.Currency.String()).
		Set("category", p.Category).
		Set("description", p.Description).
		Set("stock", p.Stock).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		Where(notDeleted).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to update product %d: %w", p.ID, postgres.MapError(err))
	}

	return updated, nil
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return r.exec(ctx, id, query, args)
}

func (r *PostgresProductRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psql.Update(table).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build soft delete query: %w", err)
	}

	return r.exec(ctx, id, query, args)
}

func (r *PostgresProductRepository) Restore(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psql.Update(table).
		Set("deleted_at", nil).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build restore query: %w", err)
	}

	return r.exec(ctx, id, query, args)
}

func (r *PostgresProductRepository) exec(ctx context.Context, id int64, query string, args []any) error {
	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to modify product %d: %w", id, postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, errs.ErrNotFound)
	}

	return nil
}
