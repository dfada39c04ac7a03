package postgresrepo

import (
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindQueryPriceRange(t *testing.T) {
	q := pagination.Query{
		Filters: []pagination.Filter{
			pagination.Eq("category", "laptops"),
			pagination.Gte("price", int64(50000)),
			pagination.Lte("price", int64(150000)),
		},
		SortBy: "price",
		Limit:  20,
	}

	sql, args, err := findQuery(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name, price_cents, currency, category, description, stock, created_at, updated_at, deleted_at "+
			"FROM products WHERE deleted_at IS NULL AND (category = $1 AND price_cents >= $2 AND price_cents <= $3) "+
			"ORDER BY price_cents ASC, id ASC LIMIT 20",
		sql,
	)
	assert.Equal(t, []any{"laptops", int64(50000), int64(150000)}, args)
}

func TestProductDalToModelRejectsBadCurrency(t *testing.T) {
	d := ProductDal{ID: 3, Currency: "XXX"}
	_, err := d.ToModel()
	require.Error(t, err)

	d.Currency = "usd"
	p, err := d.ToModel()
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency.String())
}
