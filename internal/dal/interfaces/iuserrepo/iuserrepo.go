package iuserrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// IUserRepository is an interface for user postgres repository.
// Reads skip soft-deleted rows unless stated otherwise.
type IUserRepository interface {
	Insert(ctx context.Context, u user.User) (user.User, error)
	// FindByID returns soft-deleted rows too when withDeleted is set.
	FindByID(ctx context.Context, id int64, withDeleted bool) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Find(ctx context.Context, q pagination.Query) ([]user.User, error)
	Count(ctx context.Context, q pagination.Query) (int64, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Restore(ctx context.Context, id int64, at time.Time) error
	Statistics(ctx context.Context, since time.Time) (user.Statistics, error)
}
