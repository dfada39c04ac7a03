package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/jackc/pgx/v5"
)

const table = "audit_logs"

var columns = []string{
	"id",
	"action",
	"entity_type",
	"entity_id",
	"user_id",
	"user_name",
	"user_ip",
	"user_agent",
	"description",
	"old_data",
	"new_data",
	"metadata",
	"created_at",
}

var listColumns = postgres.Columns{
	Sortable: map[string]string{
		"id":         "id",
		"action":     "action",
		"entityType": "entity_type",
		"entityId":   "entity_id",
		"userId":     "user_id",
		"createdAt":  "created_at",
	},
	Searchable: map[string]string{
		"description": "description",
		"userName":    "user_name",
	},
	Filterable: map[string]string{
		"action":     "action",
		"entityType": "entity_type",
		"entityId":   "entity_id",
		"userId":     "user_id",
		"createdAt":  "created_at",
	},
	DefaultOrder: []string{"created_at DESC", "id DESC"},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AuditDal represents audit log data access layer model
type AuditDal struct {
	ID          int64
	Action      string
	EntityType  string
	EntityID    *int64
	UserID      *int64
	UserName    *string
	UserIP      *string
	UserAgent   *string
	Description string
	OldData     []byte
	NewData     []byte
	Metadata    []byte
	CreatedAt   time.Time
}

func decodeSnapshot(raw []byte) (auditlog.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var s auditlog.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	return s, nil
}

// encodeSnapshot returns nil for an empty snapshot so the column stays NULL.
func encodeSnapshot(s auditlog.Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// ToModel converts AuditDal to service layer Entry model
func (d *AuditDal) ToModel() (auditlog.Entry, error) {
	oldData, err := decodeSnapshot(d.OldData)
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to decode old_data: %w", err)
	}
	newData, err := decodeSnapshot(d.NewData)
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to decode new_data: %w", err)
	}
	metadata, err := decodeSnapshot(d.Metadata)
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to decode metadata: %w", err)
	}

	return auditlog.Entry{
		ID:          d.ID,
		Action:      auditlog.Action(d.Action),
		EntityType:  auditlog.EntityType(d.EntityType),
		EntityID:    d.EntityID,
		UserID:      d.UserID,
		UserName:    d.UserName,
		UserIP:      d.UserIP,
		UserAgent:   d.UserAgent,
		Description: d.Description,
		OldData:     oldData,
		NewData:     newData,
		Metadata:    metadata,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func scanEntry(row pgx.Row) (auditlog.Entry, error) {
	var d AuditDal
	err := row.Scan(
		&d.ID,
		&d.Action,
		&d.EntityType,
		&d.EntityID,
		&d.UserID,
		&d.UserName,
		&d.UserIP,
		&d.UserAgent,
		&d.Description,
		&d.OldData,
		&d.NewData,
		&d.Metadata,
		&d.CreatedAt,
	)
	if err != nil {
		return auditlog.Entry{}, err
	}

	return d.ToModel()
}

// PostgresAuditRepository is the append-only audit_logs store.
type PostgresAuditRepository struct {
	conn postgres.Conn
}

func NewPostgresAuditRepository(conn postgres.Conn) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		conn: conn,
	}
}

func insertQuery(e auditlog.Entry) (string, []any, error) {
	oldData, err := encodeSnapshot(e.OldData)
	if err != nil {
		return "", nil, err
	}
	newData, err := encodeSnapshot(e.NewData)
	if err != nil {
		return "", nil, err
	}
	metadata, err := encodeSnapshot(e.Metadata)
	if err != nil {
		return "", nil, err
	}

	return psql.Insert(table).
		Columns(columns[1:]...).
		Values(
			string(e.Action),
			string(e.EntityType),
			e.EntityID,
			e.UserID,
			e.UserName,
			e.UserIP,
			e.UserAgent,
			e.Description,
			oldData,
			newData,
			metadata,
			e.CreatedAt,
		).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
}

// Insert appends an entry and returns it as stored.
func (r *PostgresAuditRepository) Insert(ctx context.Context, e auditlog.Entry) (auditlog.Entry, error) {
	query, args, err := insertQuery(e)
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	stored, err := scanEntry(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to insert audit entry: %w", postgres.MapError(err))
	}

	return stored, nil
}

func findQuery(q pagination.Query) (string, []any, error) {
	b, err := listColumns.Page(psql.Select(columns...).From(table), q)
	if err != nil {
		return "", nil, err
	}

	return b.ToSql()
}

func (r *PostgresAuditRepository) Find(ctx context.Context, q pagination.Query) ([]auditlog.Entry, error) {
	query, args, err := findQuery(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auditlog.Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entries: %w", err)
	}

	return entries, nil
}

func (r *PostgresAuditRepository) Count(ctx context.Context, q pagination.Query) (int64, error) {
	b, err := listColumns.Count(psql.Select("COUNT(*)").From(table), q)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	return r.scalar(ctx, query, args)
}

func (r *PostgresAuditRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From(table).Where(sq.GtOrEq{"created_at": since}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	return r.scalar(ctx, query, args)
}

func (r *PostgresAuditRepository) scalar(ctx context.Context, query string, args []any) (int64, error) {
	var n int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return n, nil
}

func (r *PostgresAuditRepository) groupCount(ctx context.Context, column string) (map[string]int64, error) {
	query, args, err := psql.Select(column, "COUNT(*)").From(table).GroupBy(column).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build group query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit entries by %s: %w", column, err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		out[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}

func (r *PostgresAuditRepository) CountByAction(ctx context.Context) (map[auditlog.Action]int64, error) {
	raw, err := r.groupCount(ctx, "action")
	if err != nil {
		return nil, err
	}

	out := make(map[auditlog.Action]int64, len(raw))
	for k, v := range raw {
		out[auditlog.Action(k)] = v
	}

	return out, nil
}

func (r *PostgresAuditRepository) CountByEntityType(ctx context.Context) (map[auditlog.EntityType]int64, error) {
	raw, err := r.groupCount(ctx, "entity_type")
	if err != nil {
		return nil, err
	}

	out := make(map[auditlog.EntityType]int64, len(raw))
	for k, v := range raw {
		out[auditlog.EntityType(k)] = v
	}

	return out, nil
}

// DeleteOlderThan removes entries created strictly before cutoff.
func (r *PostgresAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete(table).Where(sq.Lt{"created_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}

	return tag.RowsAffected(), nil
}
