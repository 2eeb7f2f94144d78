package ports

import (
	"context"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// GroupInput is the body of POST/PUT /groups.
type GroupInput struct {
	Name        string  `json:"name"        validate:"required,max=100"`
	Description string  `json:"description" validate:"max=255"`
	RoleIDs     []int64 `json:"roleIds"`
}

// GroupAPI manages groups and their membership.
type GroupAPI interface {
	ListGroups(ctx context.Context) ([]domain.Group, error)
	GetGroup(ctx context.Context, id int64) (*domain.Group, error)
	CreateGroup(ctx context.Context, in GroupInput) (*domain.Group, error)
	UpdateGroup(ctx context.Context, id int64, in GroupInput) (*domain.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	AssignUsers(ctx context.Context, groupID int64, userIDs []int64) (*domain.Group, error)
	RemoveUser(ctx context.Context, groupID, userID int64) error
}

// ProfileAPI reads and writes the principal's profile.
type ProfileAPI interface {
	GetProfile(ctx context.Context) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error)
}

// AuditAPI pages through the audit trail.
type AuditAPI interface {
	ListAuditLogs(ctx context.Context, page, size int) (*domain.Page[domain.AuditLog], error)
}
