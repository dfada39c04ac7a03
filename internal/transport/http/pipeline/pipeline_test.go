package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/transport/http/auth"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	principals map[string]auth.Principal
}

func (f fakeAuth) Authenticate(r *http.Request) (auth.Principal, error) {
	p, ok := f.principals[r.Header.Get("Authorization")]
	if !ok {
		return auth.Principal{}, errs.ErrUnauthenticated
	}

	return p, nil
}

type recorder struct {
	events []auditlog.Event
}

func (r *recorder) Record(_ context.Context, ev auditlog.Event) *auditlog.Entry {
	r.events = append(r.events, ev)

	return &auditlog.Entry{}
}

type widget struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter(d *Dispatcher, ops ...Operation) http.Handler {
	r := chi.NewRouter()
	d.Mount(r, ops...)

	return r
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestVersionGate(t *testing.T) {
	ops := []Operation{
		{Method: http.MethodGet, Pattern: "/ping", Handle: func(*http.Request) (Response, error) {
			return OK(map[string]string{"pong": "yes"}), nil
		}},
		{Method: http.MethodGet, Pattern: "/audit", Policy: Policy{Versions: []string{V2}},
			Handle: func(*http.Request) (Response, error) { return OK([]int{}), nil }},
	}
	h := newRouter(NewDispatcher(WithLogger(discard)), ops...)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v2/ping", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v3/ping", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/audit", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v2/audit", "").Code)
}

func TestRoleChecks(t *testing.T) {
	a := fakeAuth{principals: map[string]auth.Principal{
		"admin": {ID: 1, Name: "root", Role: user.RoleAdmin},
		"user":  {ID: 2, Name: "ann", Role: user.RoleUser},
	}}
	op := Operation{
		Method:  http.MethodDelete,
		Pattern: "/things/{id}",
		Policy:  Policy{Roles: []user.Role{user.RoleAdmin}},
		Handle:  func(*http.Request) (Response, error) { return NoContent(), nil },
	}

	enforced := newRouter(NewDispatcher(WithLogger(discard), WithAuthenticator(a, true)), op)
	assert.Equal(t, http.StatusUnauthorized, serve(enforced, http.MethodDelete, "/api/v1/things/1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(enforced, http.MethodDelete, "/api/v1/things/1", "user").Code)
	assert.Equal(t, http.StatusNoContent, serve(enforced, http.MethodDelete, "/api/v1/things/1", "admin").Code)

	relaxed := newRouter(NewDispatcher(WithLogger(discard), WithAuthenticator(a, false)), op)
	assert.Equal(t, http.StatusNoContent, serve(relaxed, http.MethodDelete, "/api/v1/things/1", "").Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", errs.ErrConflict), http.StatusConflict},
		{errs.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{errs.ErrValidation, http.StatusBadRequest},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("boom: %w", io.ErrUnexpectedEOF), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		err, status := tc.err, tc.status
		t.Run(err.Error(), func(t *testing.T) {
			h := newRouter(NewDispatcher(WithLogger(discard)), Operation{
				Method:  http.MethodGet,
				Pattern: "/fail",
				Handle:  func(*http.Request) (Response, error) { return Response{}, err },
			})

			rec := serve(h, http.MethodGet, "/api/v1/fail", "")
			require.Equal(t, status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, status, body.Code)
			assert.Equal(t, "/api/v1/fail", body.Path)
			if status == http.StatusInternalServerError {
				assert.Equal(t, "Internal Server Error", body.Message)
			}
		})
	}
}

func TestAuditRecordsSuccessfulCalls(t *testing.T) {
	rec := &recorder{}
	a := fakeAuth{principals: map[string]auth.Principal{
		"admin": {ID: 9, Name: "root", Role: user.RoleAdmin},
	}}
	d := NewDispatcher(WithLogger(discard), WithAuthenticator(a, false), WithAuditRecorder(rec))

	h := newRouter(d,
		Operation{
			Method:  http.MethodPost,
			Pattern: "/widgets",
			Policy: Policy{Audit: &AuditDescriptor{
				Action:     auditlog.ActionCreate,
				EntityType: auditlog.EntityProduct,
			}},
			Handle: func(*http.Request) (Response, error) {
				return Created(widget{ID: 42, Name: "gear", Password: "hunter2"}), nil
			},
		},
		Operation{
			Method:  http.MethodPatch,
			Pattern: "/widgets/{id}",
			Policy: Policy{Audit: &AuditDescriptor{
				Action:     auditlog.ActionUpdate,
				EntityType: auditlog.EntityProduct,
				Before: func(*http.Request) (any, error) {
					return widget{ID: 5, Name: "old"}, nil
				},
			}},
			Handle: func(*http.Request) (Response, error) {
				return Response{}, errs.ErrConflict
			},
		},
		Operation{
			Method:  http.MethodDelete,
			Pattern: "/widgets/{id}",
			Policy: Policy{Audit: &AuditDescriptor{
				Action:     auditlog.ActionDelete,
				EntityType: auditlog.EntityProduct,
				Before: func(*http.Request) (any, error) {
					return widget{ID: 5, Name: "old"}, nil
				},
			}},
			Handle: func(*http.Request) (Response, error) { return NoContent(), nil },
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/widgets", strings.NewReader("{}"))
	req.Header.Set("Authorization", "admin")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "curl/8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusConflict, serve(h, http.MethodPatch, "/api/v1/widgets/5", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodDelete, "/api/v1/widgets/5", "").Code)

	require.Len(t, rec.events, 2, "failed calls are not audited")

	created := rec.events[0]
	assert.Equal(t, auditlog.ActionCreate, created.Action)
	require.NotNil(t, created.EntityID)
	assert.Equal(t, int64(42), *created.EntityID)
	require.NotNil(t, created.Actor.ID)
	assert.Equal(t, int64(9), *created.Actor.ID)
	assert.Equal(t, "203.0.113.7", created.Provenance.IP)
	assert.Equal(t, "curl/8", created.Provenance.UserAgent)
	assert.Equal(t, "gear", created.NewData["name"])
	assert.Equal(t, "v1", created.Metadata["version"])

	deleted := rec.events[1]
	require.NotNil(t, deleted.EntityID)
	assert.Equal(t, int64(5), *deleted.EntityID)
	assert.Equal(t, "old", deleted.OldData["name"])
	assert.Nil(t, deleted.NewData)
	assert.Nil(t, deleted.Actor.ID)
}

func TestEntityIDKeepsLargeIDs(t *testing.T) {
	const big = int64(1<<62 + 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id := entityID(req, auditlog.SnapshotOf(struct {
		ID int64 `json:"id"`
	}{ID: big}))
	require.NotNil(t, id)
	assert.Equal(t, big, *id)

	assert.Nil(t, entityID(req, auditlog.Snapshot{"id": "abc"}))
}

func TestDeprecatedHeader(t *testing.T) {
	h := newRouter(NewDispatcher(WithLogger(discard)), Operation{
		Method:  http.MethodGet,
		Pattern: "/old",
		Policy:  Policy{Deprecated: "use v2"},
		Handle:  func(*http.Request) (Response, error) { return OK(nil), nil },
	})

	rec := serve(h, http.MethodGet, "/api/v1/old", "")
	assert.Equal(t, "true", rec.Header().Get("Deprecation"))
	assert.Contains(t, rec.Header().Get("Warning"), "use v2")
}
