package postgres

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// Columns whitelists the fields a listing may sort, search and filter by.
// Keys are the public field names, values are SQL column expressions.
type Columns struct {
	Sortable     map[string]string
	Searchable   map[string]string
	Filterable   map[string]string
	DefaultOrder []string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where returns the conditions of q as a squirrel predicate.
func (c Columns) Where(q pagination.Query) (sq.And, error) {
	where := sq.And{}

	for _, f := range q.Filters {
		col, ok := c.Filterable[f.Field]
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q: %w", f.Field, errs.ErrValidation)
		}

		switch f.Op {
		case pagination.OpEq, "":
			where = append(where, sq.Eq{col: f.Value})
		case pagination.OpGte:
			where = append(where, sq.GtOrEq{col: f.Value})
		case pagination.OpLte:
			where = append(where, sq.LtOrEq{col: f.Value})
		default:
			return nil, fmt.Errorf("unknown filter op %q: %w", f.Op, errs.ErrValidation)
		}
	}

	if q.Search != "" && len(q.SearchFields) > 0 {
		pattern := "%" + likeEscaper.Replace(q.Search) + "%"
		or := sq.Or{}
		for _, field := range q.SearchFields {
			col, ok := c.Searchable[field]
			if !ok {
				return nil, fmt.Errorf("unknown search field %q: %w", field, errs.ErrValidation)
			}
			or = append(or, sq.ILike{col: pattern})
		}
		where = append(where, or)
	}

	return where, nil
}

// OrderBy returns the ORDER BY clauses for q. The primary key is appended to
// keep pages stable when the sort column has ties.
func (c Columns) OrderBy(q pagination.Query) ([]string, error) {
	if q.SortBy == "" {
		return c.DefaultOrder, nil
	}

	col, ok := c.Sortable[q.SortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort field %q: %w", q.SortBy, errs.ErrValidation)
	}

	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}

	clauses := []string{col + " " + dir}
	if id, ok := c.Sortable["id"]; ok && col != id {
		clauses = append(clauses, id+" "+dir)
	}

	return clauses, nil
}

// Page applies conditions, ordering, limit and offset to a select.
func (c Columns) Page(b sq.SelectBuilder, q pagination.Query) (sq.SelectBuilder, error) {
	where, err := c.Where(q)
	if err != nil {
		return b, err
	}

	order, err := c.OrderBy(q)
	if err != nil {
		return b, err
	}

	if len(where) > 0 {
		b = b.Where(where)
	}
	b = b.OrderBy(order...)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}

	return b, nil
}

// Count applies only the conditions of q to a count select.
func (c Columns) Count(b sq.SelectBuilder, q pagination.Query) (sq.SelectBuilder, error) {
	where, err := c.Where(q)
	if err != nil {
		return b, err
	}

	if len(where) > 0 {
		b = b.Where(where)
	}

	return b, nil
}
