package users

import (
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/corray333/backend-labs/shop/internal/service/services/usersvc"
)

type createUserRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Age      *int   `json:"age"      validate:"omitempty,gte=0,lte=150"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"omitempty,oneof=admin user moderator"`
}

func (r *createUserRequest) toInput() usersvc.CreateUser {
	return usersvc.CreateUser{
		Name:     r.Name,
		Email:    r.Email,
		Age:      r.Age,
		Password: r.Password,
		Role:     r.Role,
	}
}

// updateUserRequest carries only the fields to change.
type updateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Age      *int    `json:"age"      validate:"omitempty,gte=0,lte=150"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Role     *string `json:"role"     validate:"omitempty,oneof=admin user moderator"`
}

func (r *updateUserRequest) toUpdate() user.Update {
	upd := user.Update{
		Name:     r.Name,
		Email:    r.Email,
		Age:      r.Age,
		Password: r.Password,
	}
	if r.Role != nil {
		role := user.Role(*r.Role)
		upd.Role = &role
	}

	return upd
}

type listUsersQuery struct {
	Role string `schema:"role"`
}

func (q *listUsersQuery) toFilter() (user.Filter, error) {
	if q.Role == "" {
		return user.Filter{}, nil
	}

	role, err := user.ParseRole(q.Role)
	if err != nil {
		return user.Filter{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	return user.Filter{Role: &role}, nil
}
