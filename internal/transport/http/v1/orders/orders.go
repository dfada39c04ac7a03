package orders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, in ordersvc.CreateOrder) (order.Order, error)
	FindByID(ctx context.Context, id int64) (order.Order, error)
	FindAll(ctx context.Context, filter order.Filter, req pagination.Request) (pagination.Result[order.Order], error)
	FindByUser(ctx context.Context, userID int64, req pagination.Request) (pagination.Result[order.Order], error)
	UpdateStatus(ctx context.Context, id int64, next order.Status) (order.Order, error)
	Cancel(ctx context.Context, id int64) (order.Order, error)
}

var anyRole = []user.Role{user.RoleAdmin, user.RoleModerator, user.RoleUser}

// Operations returns the order endpoints.
func Operations(svc service) []pipeline.Operation {
	h := handlers{svc: svc}
	before := func(r *http.Request) (any, error) {
		id, err := pipeline.PathInt64(r, "id")
		if err != nil {
			return nil, err
		}

		return svc.FindByID(r.Context(), id)
	}

	return []pipeline.Operation{
		{Method: http.MethodGet, Pattern: "/orders", Handle: h.list},
		{
			Method:  http.MethodPost,
			Pattern: "/orders",
			Policy: pipeline.Policy{
				Roles: anyRole,
				Audit: &pipeline.AuditDescriptor{Action: auditlog.ActionCreate, EntityType: auditlog.EntityOrder},
			},
			Handle: h.create,
		},
		{Method: http.MethodGet, Pattern: "/orders/user/{userId}", Handle: h.listByUser},
		{Method: http.MethodGet, Pattern: "/orders/{id}", Handle: h.get},
		{
			Method:  http.MethodPut,
			Pattern: "/orders/{id}/status",
			Policy: pipeline.Policy{
				Roles: []user.Role{user.RoleAdmin, user.RoleModerator},
				Audit: &pipeline.AuditDescriptor{
					Action:      auditlog.ActionUpdate,
					EntityType:  auditlog.EntityOrder,
					Description: "Order status changed",
					Before:      before,
				},
			},
			Handle: h.updateStatus,
		},
		{
			Method:  http.MethodDelete,
			Pattern: "/orders/{id}",
			Policy: pipeline.Policy{
				Roles: anyRole,
				Audit: &pipeline.AuditDescriptor{
					Action:      auditlog.ActionUpdate,
					EntityType:  auditlog.EntityOrder,
					Description: "Order cancelled",
					Before:      before,
				},
			},
			Handle: h.cancel,
		},
	}
}

type handlers struct {
	svc service
}

func (h handlers) create(r *http.Request) (pipeline.Response, error) {
	var req createOrderRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Response{}, err
	}

	in, err := req.toInput()
	if err != nil {
		return pipeline.Response{}, err
	}

	created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.Created(created), nil
}

func (h handlers) get(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	o, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(o), nil
}

func (h handlers) list(r *http.Request) (pipeline.Response, error) {
	page, err := pipeline.PageRequest(r)
	if err != nil {
		return pipeline.Response{}, err
	}

	var q listOrdersQuery
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

func (h handlers) listByUser(r *http.Request) (pipeline.Response, error) {
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

func (h handlers) updateStatus(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	var req updateStatusRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Response{}, err
	}

	updated, err := h.svc.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(updated), nil
}

func (h handlers) cancel(r *http.Request) (pipeline.Response, error) {
	id, err := pipeline.PathInt64(r, "id")
	if err != nil {
		return pipeline.Response{}, err
	}

	cancelled, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		return pipeline.Response{}, err
	}

	return pipeline.OK(cancelled), nil
}
