package auditsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iauditpublisher"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStatisticsDays = 30
	DefaultDaysToKeep     = 365
)

// AuditService records and queries the audit log.
type AuditService struct {
	repo      iauditrepo.IAuditRepository
	publisher iauditpublisher.IAuditPublisher
	log       *slog.Logger
	now       func() time.Time
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("auditsvc: audit repository is required")
	}

	return s
}

// WithAuditRepository sets the store of audit entries.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRepository(repo iauditrepo.IAuditRepository) option {
	return func(s *AuditService) {
		s.repo = repo
	}
}

// WithPublisher streams every stored entry to a message broker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(p iauditpublisher.IAuditPublisher) option {
	return func(s *AuditService) {
		s.publisher = p
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(s *AuditService) {
		s.log = log.With("component", "auditsvc")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Record appends an entry for ev. Recording is best effort: a failure is
// logged and nil is returned, it never reaches the caller as an error.
func (s *AuditService) Record(ctx context.Context, ev auditlog.Event) *auditlog.Entry {
	if !ev.Action.Valid() || !ev.EntityType.Valid() {
		s.log.ErrorContext(ctx, "Refusing to record audit entry",
			"action", ev.Action,
			"entity_type", ev.EntityType,
		)

		return nil
	}

	description := ev.Description
	if description == "" {
		description = string(ev.Action) + " " + string(ev.EntityType)
	}

	entry := auditlog.Entry{
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		UserID:      ev.Actor.ID,
		UserName:    ev.Actor.Name,
		UserIP:      optional(ev.Provenance.IP),
		UserAgent:   optional(ev.Provenance.UserAgent),
		Description: description,
		OldData:     Sanitize(ev.OldData),
		NewData:     Sanitize(ev.NewData),
		Metadata:    ev.Metadata,
		CreatedAt:   s.now(),
	}

	stored, err := s.repo.Insert(ctx, entry)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to record audit entry",
			"action", ev.Action,
			"entity_type", ev.EntityType,
			"error", err,
		)

		return nil
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, stored); err != nil {
			s.log.WarnContext(ctx, "Failed to publish audit entry", "audit_id", stored.ID, "error", err)
		}
	}

	return &stored
}

func (s *AuditService) logEntity(
	ctx context.Context,
	action auditlog.Action,
	entityType auditlog.EntityType,
	entityID int64,
	oldData, newData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
	verb string,
) *auditlog.Entry {
	return s.Record(ctx, auditlog.Event{
		Action:      action,
		EntityType:  entityType,
		EntityID:    &entityID,
		Actor:       actor,
		Provenance:  prov,
		Description: fmt.Sprintf("%s %d %s", entityType, entityID, verb),
		OldData:     auditlog.SnapshotOf(oldData),
		NewData:     auditlog.SnapshotOf(newData),
	})
}

func (s *AuditService) LogCreate(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	newData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
) *auditlog.Entry {
	return s.logEntity(ctx, auditlog.ActionCreate, entityType, entityID, nil, newData, actor, prov, "created")
}

func (s *AuditService) LogUpdate(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	oldData, newData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
) *auditlog.Entry {
	return s.logEntity(ctx, auditlog.ActionUpdate, entityType, entityID, oldData, newData, actor, prov, "updated")
}

func (s *AuditService) LogDelete(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	oldData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
) *auditlog.Entry {
	return s.logEntity(ctx, auditlog.ActionDelete, entityType, entityID, oldData, nil, actor, prov, "deleted")
}

func (s *AuditService) LogSoftDelete(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	oldData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
) *auditlog.Entry {
	return s.logEntity(ctx, auditlog.ActionSoftDelete, entityType, entityID, oldData, nil, actor, prov, "soft-deleted")
}

func (s *AuditService) LogRestore(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	newData any,
	actor auditlog.Actor,
	prov auditlog.Provenance,
) *auditlog.Entry {
	return s.logEntity(ctx, auditlog.ActionRestore, entityType, entityID, nil, newData, actor, prov, "restored")
}

// LogLogin records a successful sign-in of userID.
func (s *AuditService) LogLogin(
	ctx context.Context,
	userID int64,
	userName string,
	prov auditlog.Provenance,
	metadata auditlog.Snapshot,
) *auditlog.Entry {
	return s.Record(ctx, auditlog.Event{
		Action:      auditlog.ActionLogin,
		EntityType:  auditlog.EntityAuth,
		Actor:       auditlog.Actor{ID: &userID, Name: &userName},
		Provenance:  prov,
		Description: fmt.Sprintf("User %s signed in", userName),
		Metadata:    metadata,
	})
}

// FindAll lists entries newest first, searching description and user name.
func (s *AuditService) FindAll(
	ctx context.Context,
	req pagination.Request,
) (pagination.Result[auditlog.Entry], error) {
	return pagination.Paginate[auditlog.Entry](ctx, s.repo, req,
		pagination.WithSearchFields("description", "userName"),
		pagination.WithDefaultSort("createdAt", true),
	)
}

// FindByEntity lists the history of one entity, newest first.
func (s *AuditService) FindByEntity(
	ctx context.Context,
	entityType auditlog.EntityType,
	entityID int64,
	req pagination.Request,
) (pagination.Result[auditlog.Entry], error) {
	if !entityType.Valid() {
		return pagination.Result[auditlog.Entry]{}, fmt.Errorf("unknown entity type %q: %w", entityType, errs.ErrValidation)
	}

	return pagination.Paginate[auditlog.Entry](ctx, s.repo, req,
		pagination.WithFilters(
			pagination.Eq("entityType", string(entityType)),
			pagination.Eq("entityId", entityID),
		),
		pagination.WithDefaultSort("createdAt", true),
	)
}

// FindByUser lists the actions performed by one user, newest first.
func (s *AuditService) FindByUser(
	ctx context.Context,
	userID int64,
	req pagination.Request,
) (pagination.Result[auditlog.Entry], error) {
	return pagination.Paginate[auditlog.Entry](ctx, s.repo, req,
		pagination.WithFilters(pagination.Eq("userId", userID)),
		pagination.WithDefaultSort("createdAt", true),
	)
}

// Statistics summarizes the log. recentActivity counts entries of the last
// days days, DefaultStatisticsDays when days is not positive.
func (s *AuditService) Statistics(ctx context.Context, days int) (auditlog.Statistics, error) {
	if days <= 0 {
		days = DefaultStatisticsDays
	}

	stats := auditlog.Statistics{Days: days}
	since := s.now().AddDate(0, 0, -days)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Total, err = s.repo.Count(gctx, pagination.Query{})
		return err
	})
	g.Go(func() error {
		var err error
		stats.ByAction, err = s.repo.CountByAction(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ByEntityType, err = s.repo.CountByEntityType(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.RecentActivity, err = s.repo.CountSince(gctx, since)
		return err
	})

	if err := g.Wait(); err != nil {
		return auditlog.Statistics{}, fmt.Errorf("failed to collect audit statistics: %w", err)
	}

	return stats, nil
}

// Purge deletes entries older than daysToKeep days and returns how many were
// removed. Zero means DefaultDaysToKeep.
func (s *AuditService) Purge(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep < 0 {
		return 0, fmt.Errorf("days to keep must not be negative: %w", errs.ErrValidation)
	}
	if daysToKeep == 0 {
		daysToKeep = DefaultDaysToKeep
	}

	cutoff := s.now().AddDate(0, 0, -daysToKeep)

	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit log: %w", err)
	}

	s.log.InfoContext(ctx, "Audit log purged", "days_to_keep", daysToKeep, "deleted", deleted)

	return deleted, nil
}
