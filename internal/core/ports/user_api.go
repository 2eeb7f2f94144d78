package ports

import (
	"context"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// CreateUserInput is the body of POST /users.
type CreateUserInput struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	RoleIDs  []int64 `json:"roleIds,omitempty"`
}

// UpdateUserInput is the body of PUT /users/{id}. Nil fields are omitted
// from the request; a non-nil RoleIDs pointing at an empty slice clears
// every role.
type UpdateUserInput struct {
	Username *string  `json:"username,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Password *string  `json:"password,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
	RoleIDs  *[]int64 `json:"roleIds,omitempty"`
}

// IsEmpty reports whether the update carries no field at all.
func (in UpdateUserInput) IsEmpty() bool {
	return in.Username == nil && in.Email == nil && in.Password == nil &&
		in.Enabled == nil && in.RoleIDs == nil
}

// UserAPI is the user-management half of the admin API.
type UserAPI interface {
	Search(ctx context.Context, q domain.SearchQuery) (*domain.Page[domain.User], error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*domain.User, error)
	Purge(ctx context.Context, id int64) error
	BulkDelete(ctx context.Context, ids []int64) (*domain.BulkResult, error)
	BulkSetStatus(ctx context.Context, ids []int64, enabled bool) (*domain.BulkResult, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}
