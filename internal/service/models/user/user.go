package user

import (
	"errors"
	"time"
)

// Role is the access role of a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

var ErrInvalidRole = errors.New("invalid user role")

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name. An empty string yields RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleUser, nil
	case RoleAdmin, RoleUser, RoleModerator:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Age          *int       `json:"age,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the user is soft-deleted.
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}

// Update holds a partial change. Nil fields are left untouched.
type Update struct {
	Name     *string
	Email    *string
	Age      *int
	Password *string
	Role     *Role
}

// Statistics summarizes the user table.
type Statistics struct {
	Total             int64          `json:"total"`
	ByRole            map[Role]int64 `json:"byRole"`
	CreatedLast30Days int64          `json:"createdLast30Days"`
}

// Filter narrows a user listing. Nil fields are not applied.
type Filter struct {
	Role *Role
}
