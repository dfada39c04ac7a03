package pagination

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID       int
	Name     string
	Category string
	Price    int
}

// memSource is an in-memory Source that honours the Query contract.
type memSource struct {
	items []item
	seen  Query
}

func (m *memSource) match(q Query) []item {
	var out []item
	for _, it := range m.items {
		ok := true
		for _, f := range q.Filters {
			switch f.Field {
			case "category":
				ok = ok && it.Category == f.Value
			case "price":
				v := f.Value.(int)
				switch f.Op {
				case OpGte:
					ok = ok && it.Price >= v
				case OpLte:
					ok = ok && it.Price <= v
				case OpEq:
					ok = ok && it.Price == v
				}
			}
		}
		if ok && q.Search != "" {
			ok = strings.Contains(strings.ToLower(it.Name), strings.ToLower(q.Search))
		}
		if ok {
			out = append(out, it)
		}
	}

	return out
}

func (m *memSource) Find(_ context.Context, q Query) ([]item, error) {
	m.seen = q
	rows := m.match(q)
	if q.SortBy == "price" {
		slices.SortFunc(rows, func(a, b item) int {
			if q.SortDesc {
				return b.Price - a.Price
			}
			return a.Price - b.Price
		})
	}
	if q.Offset >= len(rows) {
		return nil, nil
	}
	end := min(q.Offset+q.Limit, len(rows))

	return rows[q.Offset:end], nil
}

func (m *memSource) Count(_ context.Context, q Query) (int64, error) {
	return int64(len(m.match(q))), nil
}

func newSource(n int) *memSource {
	src := &memSource{}
	for i := 1; i <= n; i++ {
		cat := "books"
		if i%2 == 0 {
			cat = "games"
		}
		src.items = append(src.items, item{ID: i, Name: "item", Category: cat, Price: i * 10})
	}

	return src
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Request
		want    Request
		wantErr bool
	}{
		{
			name: "defaults",
			in:   Request{},
			want: Request{Page: 1, Limit: 10, SortOrder: SortDesc},
		},
		{
			name: "limit clamped",
			in:   Request{Page: 2, Limit: 500, SortOrder: "asc"},
			want: Request{Page: 2, Limit: 100, SortOrder: SortAsc},
		},
		{
			name:    "negative page",
			in:      Request{Page: -1},
			wantErr: true,
		},
		{
			name:    "negative limit",
			in:      Request{Limit: -5},
			wantErr: true,
		},
		{
			name:    "bad sort order",
			in:      Request{SortOrder: "sideways"},
			wantErr: true,
		},
		{
			name: "trims search",
			in:   Request{Search: "  phone ", SortBy: " name "},
			want: Request{Page: 1, Limit: 10, SortOrder: SortDesc, Search: "phone", SortBy: "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMeta(t *testing.T) {
	for total := int64(0); total <= 42; total++ {
		for _, limit := range []int{1, 3, 10, 100} {
			m := NewMeta(total, 1, limit)
			want := int((total + int64(limit) - 1) / int64(limit))
			assert.Equal(t, want, m.TotalPages)
			assert.False(t, m.HasPrevious)
			assert.Equal(t, m.TotalPages > 1, m.HasNext)
		}
	}
}

func TestPaginateThirdPageOfTwentyFive(t *testing.T) {
	src := newSource(25)

	res, err := Paginate[item](context.Background(), src, Request{Page: 3, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, res.Data, 5)
	assert.Equal(t, int64(25), res.Meta.Total)
	assert.Equal(t, 3, res.Meta.TotalPages)
	assert.False(t, res.Meta.HasNext)
	assert.True(t, res.Meta.HasPrevious)
	assert.Equal(t, 21, res.Data[0].ID)
	assert.Equal(t, 20, src.seen.Offset)
}

func TestPaginatePageBeyondEnd(t *testing.T) {
	res, err := Paginate[item](context.Background(), newSource(5), Request{Page: 4, Limit: 2})
	require.NoError(t, err)

	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 3, res.Meta.TotalPages)
	assert.False(t, res.Meta.HasNext)
}

func TestPaginateNeverExceedsLimit(t *testing.T) {
	src := newSource(37)
	for page := 1; page <= 6; page++ {
		for _, limit := range []int{1, 7, 10, 50} {
			res, err := Paginate[item](context.Background(), src, Request{Page: page, Limit: limit})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Data), limit)
		}
	}
}

func TestPaginateFiltersSearchAndSort(t *testing.T) {
	src := newSource(10)
	src.items[3].Name = "Special edition"

	res, err := Paginate[item](context.Background(), src,
		Request{Search: "special"},
		WithSearchFields("name"),
		WithFilters(Eq("category", "games"), Gte("price", 20)),
	)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, 4, res.Data[0].ID)
	assert.Equal(t, []string{"name"}, src.seen.SearchFields)

	res, err = Paginate[item](context.Background(), src,
		Request{Limit: 3},
		WithDefaultSort("price", true),
		WithFilters(Lte("price", 50)),
	)
	require.NoError(t, err)
	require.Len(t, res.Data, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{res.Data[0].ID, res.Data[1].ID, res.Data[2].ID})
	assert.Equal(t, int64(5), res.Meta.Total)
}

func TestBuildQuerySearchNeedsFields(t *testing.T) {
	_, q, err := BuildQuery(Request{Search: "x"})
	require.NoError(t, err)
	assert.Empty(t, q.Search)

	_, q, err = BuildQuery(Request{SortBy: "name", SortOrder: "asc"}, WithDefaultSort("id", true))
	require.NoError(t, err)
	assert.Equal(t, "name", q.SortBy)
	assert.False(t, q.SortDesc)
}

func TestPaginatePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	src := SourceFuncs[item]{
		FindFunc: func(context.Context, Query) ([]item, error) { return nil, boom },
		CountFunc: func(context.Context, Query) (int64, error) {
			return 0, nil
		},
	}

	_, err := Paginate[item](context.Background(), src, Request{})
	require.ErrorIs(t, err, boom)

	_, err = Paginate[item](context.Background(), src, Request{Page: -2})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestMap(t *testing.T) {
	in := Result[int]{Data: []int{1, 2}, Meta: NewMeta(2, 1, 10)}
	out := Map(in, func(v int) string { return strings.Repeat("x", v) })

	assert.Equal(t, []string{"x", "xx"}, out.Data)
	assert.Equal(t, in.Meta, out.Meta)
}
