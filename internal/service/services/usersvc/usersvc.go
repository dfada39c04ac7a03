package usersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iuserrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

const (
	minPasswordLength = 6
	recentWindow      = 30 * 24 * time.Hour
)

// UserService manages user accounts.
type UserService struct {
	repo       iuserrepo.IUserRepository
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time
}

// option is a function that configures the UserService.
type option func(*UserService)

// MustNewUserService creates a new UserService.
func MustNewUserService(opts ...option) *UserService {
	s := &UserService{
		bcryptCost: bcrypt.DefaultCost,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("usersvc: user repository is required")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithUserRepository(repo iuserrepo.IUserRepository) option {
	return func(s *UserService) {
		s.repo = repo
	}
}

// WithBcryptCost overrides the password hashing cost.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBcryptCost(cost int) option {
	return func(s *UserService) {
		s.bcryptCost = cost
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(s *UserService) {
		s.log = log.With("component", "usersvc")
	}
}

// CreateUser is the input of Create.
type CreateUser struct {
	Name     string
	Email    string
	Age      *int
	Password string
	Role     string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("invalid email %q: %w", email, errs.ErrValidation)
	}

	return email, nil
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, errs.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashed), nil
}

// ensureEmailFree fails with errs.ErrConflict when another live user owns email.
func (s *UserService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("email %s is already registered: %w", email, errs.ErrConflict)
	}

	return nil
}

// Create registers a user. The email must not belong to another live user,
// the password is stored as a bcrypt hash and the role defaults to user.
func (s *UserService) Create(ctx context.Context, in CreateUser) (user.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return user.User{}, fmt.Errorf("name is required: %w", errs.ErrValidation)
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return user.User{}, err
	}

	role, err := user.ParseRole(in.Role)
	if err != nil {
		return user.User{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return user.User{}, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return user.User{}, err
	}

	now := s.now()
	created, err := s.repo.Insert(ctx, user.User{
		Name:         name,
		Email:        email,
		Age:          in.Age,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.InfoContext(ctx, "User created", "user_id", created.ID, "role", created.Role)

	return created, nil
}

// FindAll lists live users, searching name and email.
func (s *UserService) FindAll(
	ctx context.Context,
	filter user.Filter,
	req pagination.Request,
) (pagination.Result[user.User], error) {
	var filters []pagination.Filter
	if filter.Role != nil {
		filters = append(filters, pagination.Eq("role", filter.Role.String()))
	}

	return pagination.Paginate[user.User](ctx, s.repo, req,
		pagination.WithFilters(filters...),
		pagination.WithSearchFields("name", "email"),
	)
}

func (s *UserService) FindByID(ctx context.Context, id int64) (user.User, error) {
	return s.repo.FindByID(ctx, id, false)
}

// Update applies the non-nil fields of upd to a live user.
func (s *UserService) Update(ctx context.Context, id int64, upd user.Update) (user.User, error) {
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return user.User{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return user.User{}, fmt.Errorf("name must not be empty: %w", errs.ErrValidation)
		}
		current.Name = name
	}

	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return user.User{}, err
		}
		if email != current.Email {
			if err := s.ensureEmailFree(ctx, email, current.ID); err != nil {
				return user.User{}, err
			}
			current.Email = email
		}
	}

	if upd.Age != nil {
		current.Age = upd.Age
	}

	if upd.Role != nil {
		role, err := user.ParseRole(upd.Role.String())
		if err != nil || *upd.Role == "" {
			return user.User{}, fmt.Errorf("invalid role %q: %w", *upd.Role, errs.ErrValidation)
		}
		current.Role = role
	}

	if upd.Password != nil {
		hashed, err := s.hash(*upd.Password)
		if err != nil {
			return user.User{}, err
		}
		current.PasswordHash = hashed
	}

	current.UpdatedAt = s.now()

	return s.repo.Update(ctx, current)
}

// Delete removes a user permanently.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// SoftDelete hides a live user from every listing and lookup.
func (s *UserService) SoftDelete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id, s.now())
}

// Restore brings back a soft-deleted user. The email must still be free.
func (s *UserService) Restore(ctx context.Context, id int64) (user.User, error) {
	deleted, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return user.User{}, err
	}
	if !deleted.Deleted() {
		return user.User{}, fmt.Errorf("user %d is not deleted: %w", id, errs.ErrConflict)
	}

	if err := s.ensureEmailFree(ctx, deleted.Email, id); err != nil {
		return user.User{}, err
	}

	if err := s.repo.Restore(ctx, id, s.now()); err != nil {
		return user.User{}, err
	}

	return s.repo.FindByID(ctx, id, false)
}

// VerifyPassword reports whether password matches the stored hash of u.
func VerifyPassword(u user.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Statistics counts live users in total, per role and created in the last 30 days.
func (s *UserService) Statistics(ctx context.Context) (user.Statistics, error) {
	stats, err := s.repo.Statistics(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return user.Statistics{}, fmt.Errorf("failed to collect user statistics: %w", err)
	}

	return stats, nil
}
