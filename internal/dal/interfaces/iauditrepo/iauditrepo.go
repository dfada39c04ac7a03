package iauditrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// IAuditRepository is an append-only store of audit entries.
type IAuditRepository interface {
	Insert(ctx context.Context, e auditlog.Entry) (auditlog.Entry, error)
	Find(ctx context.Context, q pagination.Query) ([]auditlog.Entry, error)
	Count(ctx context.Context, q pagination.Query) (int64, error)
	CountByAction(ctx context.Context) (map[auditlog.Action]int64, error)
	CountByEntityType(ctx context.Context) (map[auditlog.EntityType]int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
