package audit

import (
	"context"
	"net/http"
	"strings"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
	"github.com/go-chi/chi/v5"
)

// service is an interface for the service layer.
type service interface {
	FindAll(ctx context.Context, req pagination.Request) (pagination.Result[auditlog.Entry], error)
	FindByEntity(
		ctx context.Context,
		entityType auditlog.EntityType,
		entityID int64,
		req pagination.Request,
	) (pagination.Result[auditlog.Entry], error)
	FindByUser(ctx context.Context, userID int64, req pagination.Request) (pagination.Result[auditlog.Entry], error)
	Statistics(ctx context.Context, days int) (auditlog.Statistics, error)
	Purge(ctx context.Context, daysToKeep int) (int64, error)
}

// Operations returns the audit endpoints. They are served under v2 only.
func Operations(svc service) []pipeline.Operation {
	h := handlers{svc: svc}
	policy := pipeline.Policy{
		Roles:    []user.Role{user.RoleAdmin},
		Versions: []string{pipeline.V2},
	}

	cleanup := policy
	cleanup.Audit = &pipeline.AuditDescriptor{
		Action:      auditlog.ActionDelete,
		EntityType:  auditlog.EntitySystem,
		Description: "Audit log cleanup",
	}

	return []pipeline.Operation{
		{Method: http.MethodGet, Pattern: "/audit", Policy: policy, Handle: h.list},
		{Method: http.MethodGet, Pattern: "/audit/statistics", Policy: policy, Handle: h.statistics},
		{Method: http.MethodGet, Pattern: "/audit/entity/{entityType}/{entityId}", Policy: policy, Handle: h.byEntity},
		{Method: http.MethodGet, Pattern: "/audit/user/{userId}", Policy: policy, Handle: h.byUser},
		{Method: http.MethodPost, Pattern: "/audit/cleanup", Policy: cleanup, Handle: h.cleanup},
	}
}

type handlers struct {
	svc service
}

func (h handlers) list(r *http.Request) (pipeline.Response, error) {
	page, err := pipeline.PageRequest(r)
	if err != nil {
		return pipeline.Response{}, err
	}

	res, err := h.svc.FindAll(r.Context(), page)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(res), nil
}

func (h handlers) byEntity(r *http.Request) (pipeline.Response, error) {
	entityID, err := pipeline.PathInt64(r, "entityId")
	if err != nil {
		return pipeline.Response{}, err
	}

	page, err := pipeline.PageRequest(r)
	if err != nil {
		return pipeline.Response{}, err
	}

	entityType := auditlog.EntityType(strings.ToUpper(chi.URLParam(r, "entityType")))

	res, err := h.svc.FindByEntity(r.Context(), entityType, entityID, page)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(res), nil
}

func (h handlers) byUser(r *http.Request) (pipeline.Response, error) {
	userID, err := pipeline.PathInt64(r, "userId")
	if err != nil {
		return pipeline.Response{}, err
	}

	page, err := pipeline.PageRequest(r)
	if err != nil {
		return pipeline.Response{}, err
	}

	res, err := h.svc.FindByUser(r.Context(), userID, page)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(res), nil
}

func (h handlers) statistics(r *http.Request) (pipeline.Response, error) {
	days, err := pipeline.QueryInt(r, "days", 0)
	if err != nil {
		return pipeline.Response{}, err
	}

	stats, err := h.svc.Statistics(r.Context(), days)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(stats), nil
}

type cleanupResponse struct {
	Deleted    int64 `json:"deleted"`
	DaysToKeep int   `json:"daysToKeep"`
}

func (h handlers) cleanup(r *http.Request) (pipeline.Response, error) {
	days, err := pipeline.QueryInt(r, "daysToKeep", 0)
	if err != nil {
		return pipeline.Response{}, err
	}

	deleted, err := h.svc.Purge(r.Context(), days)
	if err != nil {
		return pipeline.Response{}, err
	}

	if days == 0 {
		days = auditsvc.DefaultDaysToKeep
	}

	return pipeline.OK(cleanupResponse{Deleted: deleted, DaysToKeep: days}), nil
}
