package user

import (
	"errors"
	"time"

	"github.com/projecthub-dev/projecthub/internal/domain/role"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         role.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

// Users are created by an admin, never by open signup, so the role rides in
// on the create request and is validated against the closed enum.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Role     string `json:"role" binding:"required,oneof=admin project_lead developer"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin project_lead developer"`
}
