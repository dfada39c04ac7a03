package products

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/services/productsvc"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, in productsvc.CreateProduct) (product.Product, error)
	FindAll(ctx context.Context, filter product.Filter, req pagination.Request) (pagination.Result[product.Product], error)
	FindByID(ctx context.Context, id int64) (product.Product, error)
	Update(ctx context.Context, id int64, upd product.Update) (product.Product, error)
	Delete(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (product.Product, error)
}

var staff = []user.Role{user.RoleAdmin, user.RoleModerator}

// Operations returns the product endpoints.
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
		return &pipeline.AuditDescriptor{Action: action, EntityType: auditlog.EntityProduct, Before: before}
	}

	return []pipeline.Operation{
		{Method: http.MethodGet, Pattern: "/products", Handle: h.list},
		{
			Method:  http.MethodPost,
			Pattern: "/products",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionCreate, nil)},
			Handle:  h.create,
		},
		{Method: http.MethodGet, Pattern: "/products/{id}", Handle: h.get},
		{
			Method:  http.MethodPatch,
			Pattern: "/products/{id}",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionUpdate, before)},
			Handle:  h.update,
		},
		{
			Method:  http.MethodDelete,
			Pattern: "/products/{id}",
			Policy:  pipeline.Policy{Roles: []user.Role{user.RoleAdmin}, Audit: audit(auditlog.ActionDelete, before)},
			Handle:  h.delete,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/products/{id}/soft-delete",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionSoftDelete, before)},
			Handle:  h.softDelete,
		},
		{
			Method:  http.MethodPost,
			Pattern: "/products/{id}/restore",
			Policy:  pipeline.Policy{Roles: staff, Audit: audit(auditlog.ActionRestore, nil)},
			Handle:  h.restore,
		},
	}
}

type handlers struct {
	svc service
}

func (h handlers) create(r *http.Request) (pipeline.Response, error) {
	var req createProductRequest
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

	var q listProductsQuery
	if err := pipeline.DecodeQuery(r, &q); err != nil {
		return pipeline.Response{}, err
	}

	res, err := h.svc.FindAll(r.Context(), q.toFilter(), page)
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

	p, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(p), nil
}

func (h handlers) update(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	var req updateProductRequest
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
