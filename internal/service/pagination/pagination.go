// Package pagination turns a listing request into a bounded, deterministic
// slice of results plus the metadata a client needs to walk the pages.
package pagination

import (
	"context"
	"fmt"
	"strings"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Request is a client listing request as decoded from the query string.
type Request struct {
	Page      int       `schema:"page"      json:"page"`
	Limit     int       `schema:"limit"     json:"limit"`
	SortBy    string    `schema:"sortBy"    json:"sortBy,omitempty"`
	SortOrder SortOrder `schema:"sortOrder" json:"sortOrder,omitempty"`
	Search    string    `schema:"search"    json:"search,omitempty"`
}

// Normalize applies defaults and bounds. A zero page or limit means "use the
// default", a negative one is rejected, and a limit above MaxLimit is clamped.
func (r Request) Normalize() (Request, error) {
	switch {
	case r.Page < 0:
		return r, fmt.Errorf("page must be at least 1: %w", errs.ErrValidation)
	case r.Page == 0:
		r.Page = DefaultPage
	}

	switch {
	case r.Limit < 0:
		return r, fmt.Errorf("limit must be at least 1: %w", errs.ErrValidation)
	case r.Limit == 0:
		r.Limit = DefaultLimit
	case r.Limit > MaxLimit:
		r.Limit = MaxLimit
	}

	switch SortOrder(strings.ToUpper(string(r.SortOrder))) {
	case "", SortDesc:
		r.SortOrder = SortDesc
	case SortAsc:
		r.SortOrder = SortAsc
	default:
		return r, fmt.Errorf("sort order must be ASC or DESC: %w", errs.ErrValidation)
	}

	r.SortBy = strings.TrimSpace(r.SortBy)
	r.Search = strings.TrimSpace(r.Search)

	return r, nil
}

// Offset returns the number of rows to skip. Valid after Normalize.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Meta describes where a page sits in the full result.
type Meta struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasPrevious bool  `json:"hasPrevious"`
	HasNext     bool  `json:"hasNext"`
}

// NewMeta computes page metadata. limit must be positive.
func NewMeta(total int64, page, limit int) Meta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return Meta{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

// Result is one page of data.
type Result[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// Map converts the items of a page keeping its metadata.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := Result[U]{Data: make([]U, 0, len(r.Data)), Meta: r.Meta}
	for _, v := range r.Data {
		out.Data = append(out.Data, fn(v))
	}

	return out
}

// Op is a comparison applied by a Filter.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Filter is a structured condition on a single field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// Query is what a Source receives. Filters are AND-ed, Search is a
// case-insensitive substring match OR-ed across SearchFields and AND-ed with
// the filters. An empty SortBy leaves ordering to the source default.
type Query struct {
	Filters      []Filter
	Search       string
	SearchFields []string
	SortBy       string
	SortDesc     bool
	Limit        int
	Offset       int
}

// Source is a collection that can be listed and counted.
type Source[T any] interface {
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
}

// SourceFuncs adapts a pair of functions to Source.
type SourceFuncs[T any] struct {
	FindFunc  func(ctx context.Context, q Query) ([]T, error)
	CountFunc func(ctx context.Context, q Query) (int64, error)
}

func (s SourceFuncs[T]) Find(ctx context.Context, q Query) ([]T, error) {
	return s.FindFunc(ctx, q)
}

func (s SourceFuncs[T]) Count(ctx context.Context, q Query) (int64, error) {
	return s.CountFunc(ctx, q)
}

type settings struct {
	filters      []Filter
	searchFields []string
	defaultSort  string
	defaultDesc  bool
}

// option configures a Paginate call.
type option func(*settings)

// WithFilters adds structured filters to the query.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFilters(filters ...Filter) option {
	return func(s *settings) {
		s.filters = append(s.filters, filters...)
	}
}

// WithSearchFields names the fields the free-text search is matched against.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSearchFields(fields ...string) option {
	return func(s *settings) {
		s.searchFields = append(s.searchFields, fields...)
	}
}

// WithDefaultSort sets the ordering used when the request names no sort field.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDefaultSort(field string, desc bool) option {
	return func(s *settings) {
		s.defaultSort = field
		s.defaultDesc = desc
	}
}

// BuildQuery normalizes req and derives the Query a Source receives.
func BuildQuery(req Request, opts ...option) (Request, Query, error) {
	req, err := req.Normalize()
	if err != nil {
		return req, Query{}, err
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	q := Query{
		Filters:  s.filters,
		Limit:    req.Limit,
		Offset:   req.Offset(),
		SortBy:   req.SortBy,
		SortDesc: req.SortOrder == SortDesc,
	}
	if q.SortBy == "" {
		q.SortBy = s.defaultSort
		q.SortDesc = s.defaultDesc
	}
	if req.Search != "" && len(s.searchFields) > 0 {
		q.Search = req.Search
		q.SearchFields = s.searchFields
	}

	return req, q, nil
}

// Paginate lists one page of src. The page slice and the total count are
// fetched concurrently.
func Paginate[T any](ctx context.Context, src Source[T], req Request, opts ...option) (Result[T], error) {
	req, q, err := BuildQuery(req, opts...)
	if err != nil {
		return Result[T]{}, err
	}

	var (
		data  []T
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = src.Find(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to find page: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		var err error
		total, err = src.Count(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}

		return nil
	})
	if err := g.Wait(); err != nil {
		return Result[T]{}, err
	}

	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data: data,
		Meta: NewMeta(total, req.Page, req.Limit),
	}, nil
}
