package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/jackc/pgx/v5"
)

const table = "users"

var columns = []string{
	"id",
	"name",
	"email",
	"age",
	"password_hash",
	"role",
	"created_at",
	"updated_at",
	"deleted_at",
}

var listColumns = postgres.Columns{
	Sortable: map[string]string{
		"id":        "id",
		"name":      "name",
		"email":     "email",
		"age":       "age",
		"role":      "role",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	Searchable: map[string]string{
		"name":  "name",
		"email": "email",
	},
	Filterable: map[string]string{
		"role":      "role",
		"age":       "age",
		"createdAt": "created_at",
	},
	DefaultOrder: []string{"id ASC"},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var notDeleted = sq.Eq{"deleted_at": nil}

// UserDal represents user data access layer model
type UserDal struct {
	ID           int64
	Name         string
	Email        string
	Age          *int
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// ToModel converts UserDal to service layer User model
func (d *UserDal) ToModel() (user.User, error) {
	role, err := user.ParseRole(d.Role)
	if err != nil {
		return user.User{}, err
	}

	return user.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Age:          d.Age,
		PasswordHash: d.PasswordHash,
		Role:         role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		DeletedAt:    d.DeletedAt,
	}, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var d UserDal
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Age,
		&d.PasswordHash,
		&d.Role,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	return d.ToModel()
}

// PostgresUserRepository stores users in the users table.
type PostgresUserRepository struct {
	conn postgres.Conn
}

func NewPostgresUserRepository(conn postgres.Conn) *PostgresUserRepository {
	return &PostgresUserRepository{
		conn: conn,
	}
}

// Insert stores a new user and returns it with its generated id.
func (r *PostgresUserRepository) Insert(ctx context.Context, u user.User) (user.User, error) {
	query, args, err := psql.Insert(table).
		Columns("name", "email", "age", "password_hash", "role", "created_at", "updated_at").
		Values(u.Name, u.Email, u.Age, u.PasswordHash, u.Role.String(), u.CreatedAt, u.UpdatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	created, err := scanUser(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return user.User{}, fmt.Errorf("failed to insert user: %w", postgres.MapError(err))
	}

	return created, nil
}

// FindByID returns a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64, withDeleted bool) (user.User, error) {
	b := psql.Select(columns...).From(table).Where(sq.Eq{"id": id})
	if !withDeleted {
		b = b.Where(notDeleted)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("failed to build select query: %w", err)
	}

	u, err := scanUser(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return user.User{}, fmt.Errorf("failed to find user %d: %w", id, postgres.MapError(err))
	}

	return u, nil
}

// FindByEmail returns a non-deleted user by email.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	query, args, err := psql.Select(columns...).
		From(table).
		Where(sq.Eq{"email": email}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("failed to build select query: %w", err)
	}

	u, err := scanUser(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return user.User{}, fmt.Errorf("failed to find user by email: %w", postgres.MapError(err))
	}

	return u, nil
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

// Find returns one page of non-deleted users.
func (r *PostgresUserRepository) Find(ctx context.Context, q pagination.Query) ([]user.User, error) {
	query, args, err := findQuery(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	return users, nil
}

// Count returns the number of non-deleted users matching q.
func (r *PostgresUserRepository) Count(ctx context.Context, q pagination.Query) (int64, error) {
	query, args, err := countQuery(q)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return total, nil
}

// Update overwrites the mutable fields of a non-deleted user.
func (r *PostgresUserRepository) Update(ctx context.Context, u user.User) (user.User, error) {
	query, args, err := psql.Update(table).
		Set("name", u.Name).
		Set("email", u.Email).
		Set("age", u.Age).
		Set("password_hash", u.PasswordHash).
		Set("role", u.Role.String()).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID}).
		Where(notDeleted).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := scanUser(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return user.User{}, fmt.Errorf("failed to update user %d: %w", u.ID, postgres.MapError(err))
	}

	return updated, nil
}

// Delete removes a user row permanently.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return r.exec(ctx, id, query, args)
}

// SoftDelete marks a non-deleted user as deleted.
func (r *PostgresUserRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
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

// Restore clears the deletion mark of a soft-deleted user.
func (r *PostgresUserRepository) Restore(ctx context.Context, id int64, at time.Time) error {
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

func (r *PostgresUserRepository) exec(ctx context.Context, id int64, query string, args []any) error {
	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to modify user %d: %w", id, postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}

	return nil
}

// Statistics counts non-deleted users in total, per role and since the given moment.
func (r *PostgresUserRepository) Statistics(ctx context.Context, since time.Time) (user.Statistics, error) {
	stats := user.Statistics{ByRole: map[user.Role]int64{}}

	query, args, err := psql.Select("COUNT(*)").
		Column(sq.Expr("COUNT(*) FILTER (WHERE created_at >= ?)", since)).
		From(table).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build statistics query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&stats.Total, &stats.CreatedLast30Days); err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}

	query, args, err = psql.Select("role", "COUNT(*)").
		From(table).
		Where(notDeleted).
		GroupBy("role").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build role statistics query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("failed to count users by role: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role  string
			count int64
		)
		if err := rows.Scan(&role, &count); err != nil {
			return stats, fmt.Errorf("failed to scan role count: %w", err)
		}
		stats.ByRole[user.Role(role)] = count
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("rows iteration error: %w", err)
	}

	return stats, nil
}
