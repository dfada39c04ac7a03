// Package pipeline runs every HTTP operation through a fixed sequence:
// version gate, authentication, role check, handler, audit, response.
// Operations declare what they need in a Policy instead of wrapping
// themselves in middleware.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/transport/http/auth"
	"github.com/go-chi/chi/v5"
)

const (
	V1 = "v1"
	V2 = "v2"
)

// DefaultVersions is served by operations that do not restrict their versions.
var DefaultVersions = []string{V1, V2}

// Response is what a handler produces on success.
type Response struct {
	Status int
	Body   any
}

func OK(body any) Response      { return Response{Status: http.StatusOK, Body: body} }
func Created(body any) Response { return Response{Status: http.StatusCreated, Body: body} }
func NoContent() Response       { return Response{Status: http.StatusNoContent} }

type HandlerFunc func(r *http.Request) (Response, error)

// AuditDescriptor asks the dispatcher to record a successful call.
type AuditDescriptor struct {
	Action      auditlog.Action
	EntityType  auditlog.EntityType
	Description string
	// Before loads the entity prior to the change; it becomes the old data.
	Before func(r *http.Request) (any, error)
}

type Policy struct {
	// Roles admitted to the operation. Empty admits any caller.
	Roles []user.Role
	// Versions the operation is served under. Empty means DefaultVersions.
	Versions []string
	// Deprecated, when set, is sent to clients in a Warning header.
	Deprecated string
	Audit      *AuditDescriptor
}

type Operation struct {
	Method  string
	Pattern string
	Policy  Policy
	Handle  HandlerFunc
}

type authenticator interface {
	Authenticate(r *http.Request) (auth.Principal, error)
}

type auditRecorder interface {
	Record(ctx context.Context, ev auditlog.Event) *auditlog.Entry
}

// Dispatcher mounts operations under /api/{version}.
type Dispatcher struct {
	log         *slog.Logger
	auth        authenticator
	authEnabled bool
	auditor     auditRecorder
}

// option is a function that configures the Dispatcher.
type option func(*Dispatcher)

func NewDispatcher(opts ...option) *Dispatcher {
	d := &Dispatcher{
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithAuthenticator sets how callers are identified. Role checks are only
// enforced when enforce is true; otherwise a valid token merely names the actor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuthenticator(a authenticator, enforce bool) option {
	return func(d *Dispatcher) {
		d.auth = a
		d.authEnabled = enforce
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRecorder(rec auditRecorder) option {
	return func(d *Dispatcher) {
		d.auditor = rec
	}
}

// Mount registers ops on r.
func (d *Dispatcher) Mount(r chi.Router, ops ...Operation) {
	r.Route("/api/{version}", func(r chi.Router) {
		for _, op := range ops {
			r.Method(op.Method, op.Pattern, d.handler(op))
		}
	})
}

func (d *Dispatcher) handler(op Operation) http.HandlerFunc {
	versions := op.Policy.Versions
	if len(versions) == 0 {
		versions = DefaultVersions
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(versions, chi.URLParam(r, "version")) {
			d.writeError(w, r, errRouteNotFound)

			return
		}
		if op.Policy.Deprecated != "" {
			w.Header().Set("Deprecation", "true")
			w.Header().Set("Warning", `299 - "`+op.Policy.Deprecated+`"`)
		}

		r, err := d.authorize(r, op.Policy.Roles)
		if err != nil {
			d.writeError(w, r, err)

			return
		}

		audited := op.Policy.Audit != nil && d.auditor != nil

		var before any
		if a := op.Policy.Audit; audited && a.Before != nil {
			if before, err = a.Before(r); err != nil {
				d.writeError(w, r, err)

				return
			}
		}

		resp, err := op.Handle(r)
		if err != nil {
			d.writeError(w, r, err)

			return
		}

		if audited {
			d.audit(r, op.Policy.Audit, before, resp)
		}

		d.writeJSON(w, r, resp.Status, resp.Body)
	}
}

func (d *Dispatcher) authorize(r *http.Request, roles []user.Role) (*http.Request, error) {
	if d.auth == nil {
		return r, nil
	}

	p, err := d.auth.Authenticate(r)
	switch {
	case err == nil:
		r = r.WithContext(auth.WithPrincipal(r.Context(), p))
	case !errors.Is(err, errs.ErrUnauthenticated):
		return r, err
	}

	if !d.authEnabled || len(roles) == 0 {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	if !auth.Allowed(p, roles) {
		return r, errs.ErrForbidden
	}

	return r, nil
}

func (d *Dispatcher) audit(r *http.Request, desc *AuditDescriptor, before any, resp Response) {
	newData := auditlog.SnapshotOf(resp.Body)

	ev := auditlog.Event{
		Action:      desc.Action,
		EntityType:  desc.EntityType,
		EntityID:    entityID(r, newData),
		Provenance:  ProvenanceFrom(r),
		Description: desc.Description,
		OldData:     auditlog.SnapshotOf(before),
		NewData:     newData,
		Metadata: auditlog.Snapshot{
			"method":  r.Method,
			"path":    r.URL.Path,
			"version": chi.URLParam(r, "version"),
			"status":  resp.Status,
		},
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		id, name := p.ID, p.Name
		ev.Actor = auditlog.Actor{ID: &id, Name: &name}
	}

	d.auditor.Record(r.Context(), ev)
}

// entityID prefers the id of the returned entity and falls back to the
// {id} path parameter.
func entityID(r *http.Request, body auditlog.Snapshot) *int64 {
	if n, ok := body["id"].(json.Number); ok {
		if id, err := n.Int64(); err == nil && id > 0 {
			return &id
		}
	}
	if id, err := PathInt64(r, "id"); err == nil {
		return &id
	}

	return nil
}
