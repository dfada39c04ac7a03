package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/services/usersvc"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	created usersvc.CreateUser
	update  user.Update
	filter  user.Filter
}

func (f *fakeService) Create(_ context.Context, in usersvc.CreateUser) (user.User, error) {
	if in.Email == "taken@example.com" {
		return user.User{}, errs.ErrConflict
	}
	f.created = in

	return user.User{ID: 1, Name: in.Name, Email: in.Email, PasswordHash: "hash", Role: user.RoleUser}, nil
}

func (f *fakeService) FindAll(_ context.Context, filter user.Filter, _ pagination.Request) (pagination.Result[user.User], error) {
	f.filter = filter

	return pagination.Result[user.User]{Data: []user.User{}}, nil
}

func (f *fakeService) FindByID(_ context.Context, id int64) (user.User, error) {
	if id != 1 {
		return user.User{}, errs.ErrNotFound
	}

	return user.User{ID: 1, Name: "Ann", PasswordHash: "hash"}, nil
}

func (f *fakeService) Update(_ context.Context, _ int64, upd user.Update) (user.User, error) {
	f.update = upd

	return user.User{ID: 1}, nil
}

func (f *fakeService) Delete(context.Context, int64) error     { return nil }
func (f *fakeService) SoftDelete(context.Context, int64) error { return nil }

func (f *fakeService) Restore(_ context.Context, id int64) (user.User, error) {
	return user.User{}, errs.ErrConflict
}

func (f *fakeService) Statistics(context.Context) (user.Statistics, error) {
	return user.Statistics{Total: 2}, nil
}

func newRouter(svc service) http.Handler {
	r := chi.NewRouter()
	pipeline.NewDispatcher(pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		Mount(r, Operations(svc)...)

	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rec
}

func TestCreateUser(t *testing.T) {
	svc := &fakeService{}
	h := newRouter(svc)

	rec := do(h, http.MethodPost, "/api/v1/users", `{"name":"Ann","email":"ann@example.com","password":"secret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hash")
	assert.Equal(t, "ann@example.com", svc.created.Email)

	rec = do(h, http.MethodPost, "/api/v1/users", `{"name":"Ann","email":"taken@example.com","password":"secret-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/users", `{"name":"Ann","email":"nope","password":"secret-pass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/users", `{"name":"Ann","email":"a@b.co","password":"secret-pass","role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUserIsPartial(t *testing.T) {
	svc := &fakeService{}
	h := newRouter(svc)

	rec := do(h, http.MethodPatch, "/api/v1/users/1", `{"role":"moderator"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.update.Name)
	assert.Nil(t, svc.update.Password)
	require.NotNil(t, svc.update.Role)
	assert.Equal(t, user.RoleModerator, *svc.update.Role)
}

func TestUserRoutes(t *testing.T) {
	svc := &fakeService{}
	h := newRouter(svc)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/users/statistics", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/users/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/users/2", "").Code)
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/v1/users/1", "").Code)
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "/api/v1/users/1/soft-delete", "").Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/api/v1/users/1/restore", "").Code)

	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/users?role=admin", "").Code)
	require.NotNil(t, svc.filter.Role)
	assert.Equal(t, user.RoleAdmin, *svc.filter.Role)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/v1/users?role=root", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/v1/users?page=0", "").Code)
}
