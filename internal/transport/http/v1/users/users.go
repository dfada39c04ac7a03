package users

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/services/usersvc"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, in usersvc.CreateUser) (user.User, error)
	FindAll(ctx context.Context, filter user.Filter, req pagination.Request) (pagination.Result[user.User], error)
	FindByID(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, upd user.Update) (user.User, error)
	Delete(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (user.User, error)
	Statistics(ctx context.Context) (user.Statistics, error)
}

var (
	admins = []user.Role{user.RoleAdmin}
	staff  = []user.Role{user.RoleAdmin, user.RoleModerator}
)

// Operations returns the user endpoints.
func Operations(svc service) []pipeline.Operation {
	h := handlers{svc: svc}
	before := func(r *http.Request) (any, error) {
		id, err := pipeline.PathInt64(r, "id")
		if err != nil {
			return nil, err
		}

		return svc.FindByID(r.Context(), id)
	}
	audit := func(action auditlog.Action, before func(*http.Request) (any, error)) *pipeline.AuditDescriptor {
		return &pipeline.AuditDescriptor{Action: action, EntityType: auditlog.EntityUser, Before: before}
	}

	return []pipeline.Operation{
		{Method: http.MethodGet, Pattern: "/users", Handle: h.list},
		{
			Method:  http.MethodPost,
			Pattern: "/users",
			Policy:  pipeline.Policy{Roles: admins, Audit: audit(auditlog.ActionCreate, nil)},
			Handle:  h.create,
		},
		{Method: http.MethodGet, Pattern: "/users/statistics", Policy: pipeline.Policy{Roles: staff}, Handle: h.statistics},
		{Method: http.MethodGet, Pattern: "/users/{id}", Handle: h.get},
		{
			Method:  http.MethodPatch,
			Pattern: "/users/{id}",
			Policy:  pipeline.Policy{Roles: admins, Audit: audit(auditlog.ActionUpdate, before)},
			Handle:  h.update,
		},
		{
			Method:  http.MethodDelete,
			Pattern: "/users/{id}",
			Policy:  pipeline.Policy{Roles: admins, Audit: audit(auditlog.ActionDelete, before)},
			Handle:  h.delete,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/users/{id}/soft-delete",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionSoftDelete, before)},
			Handle:  h.softDelete,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/users/{id}/restore",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionRestore, nil)},
			Handle:  h.restore,
		},
	}
}

type handlers struct {
	svc service
}

func (h handlers) create(r *http.Request) (pipeline.Response, error) {
	var req createUserRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Response{}, err
	}

	created, err := h.svc.Create(r.Context(), req.toInput())
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.Created(created), nil
}

func (h handlers) list(r *http.Request) (pipeline.Response, error) {
	page, err := pipeline.PageRequest(r)
	if err != nil {
		return pipeline.Response{}, err
	}

	var q listUsersQuery
	if err := pipeline.DecodeQuery(r, &q); err != nil {
		return pipeline.Response{}, err
	}

	filter, err := q.toFilter()
	if err != nil {
		return pipeline.Response{}, err
	}

	res, err := h.svc.FindAll(r.Context(), filter, page)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(res), nil
}

func (h handlers) get(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	u, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(u), nil
}

func (h handlers) update(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	var req updateUserRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Response{}, err
	}

	updated, err := h.svc.Update(r.Context(), id, req.toUpdate())
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(updated), nil
}

func (h handlers) delete(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.NoContent(), nil
}

func (h handlers) softDelete(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	if err := h.svc.SoftDelete(r.Context(), id); err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.NoContent(), nil
}

func (h handlers) restore(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	restored, err := h.svc.Restore(r.Context(), id)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(restored), nil
}

func (h handlers) statistics(r *http.Request) (pipeline.Response, error) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(stats), nil
}
