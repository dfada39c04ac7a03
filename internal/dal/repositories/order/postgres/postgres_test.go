package postgresrepo

import (
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateStatusQueryIsGuarded(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	sql, args, err := updateStatusQuery(42, order.StatusPaid, order.StatusShipped, at)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 "+
			"RETURNING id, user_id, total_amount_cents, currency, status, address, created_at, updated_at",
		sql,
	)
	assert.Equal(t, []any{"shipped", at, int64(42), "paid"}, args)
}

func TestFindQueryByUserAndStatus(t *testing.T) {
	q := pagination.Query{
		Filters:  []pagination.Filter{pagination.Eq("userId", int64(7)), pagination.Eq("status", "pending")},
		SortBy:   "createdAt",
		SortDesc: true,
		Limit:    10,
	}

	sql, args, err := findQuery(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, user_id, total_amount_cents, currency, status, address, created_at, updated_at FROM orders "+
			"WHERE (user_id = $1 AND status = $2) ORDER BY created_at DESC, id DESC LIMIT 10",
		sql,
	)
	assert.Equal(t, []any{int64(7), "pending"}, args)
}

func TestOrderDalToModel(t *testing.T) {
	d := OrderDal{ID: 1, UserID: 2, TotalAmountCents: 250, Currency: "RUB", Status: "pending"}
	o, err := d.ToModel()
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.NotNil(t, o.Items)

	d.Status = "teleported"
	_, err = d.ToModel()
	assert.ErrorIs(t, err, order.ErrInvalidStatus)
}
