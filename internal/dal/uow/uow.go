package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	orderrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/orderitem/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotStarted = errors.New("unit of work is not started")

// UnitOfWork groups repository calls into one database transaction.
// Repositories are bound to the transaction after Begin.
type UnitOfWork struct {
	pool          *pgxpool.Pool
	tx            pgx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
	}
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return ErrNotStarted
	}

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}
