package pipeline

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate = validator.New()
	decoder  = newDecoder()
)

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}

// DecodeJSON decodes and validates the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w: %w", errs.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	return nil
}

// DecodeQuery decodes the query string into dst and validates it.
func DecodeQuery(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("malformed query: %w: %w", errs.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	return nil
}

// PageRequest decodes the pagination parameters of the query string.
// An omitted page or limit takes the default, an explicit zero is rejected.
func PageRequest(r *http.Request) (pagination.Request, error) {
	var req pagination.Request
	if err := decoder.Decode(&req, r.URL.Query()); err != nil {
		return pagination.Request{}, fmt.Errorf("malformed pagination: %w: %w", errs.ErrValidation, err)
	}
	query := r.URL.Query()
	if query.Has("page") && req.Page < 1 {
		return pagination.Request{}, fmt.Errorf("page must be at least 1: %w", errs.ErrValidation)
	}
	if query.Has("limit") && req.Limit < 1 {
		return pagination.Request{}, fmt.Errorf("limit must be at least 1: %w", errs.ErrValidation)
	}

	return req.Normalize()
}

// PathInt64 parses a positive integer path parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, errs.ErrValidation)
	}

	return id, nil
}

// QueryInt parses an optional integer query parameter, returning def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, errs.ErrValidation)
	}

	return v, nil
}

// ProvenanceFrom reports the client address and user agent of r. The address
// is the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ProvenanceFrom(r *http.Request) auditlog.Provenance {
	return auditlog.Provenance{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
