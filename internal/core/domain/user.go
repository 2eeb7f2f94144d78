package domain

import (
	"sort"
	"time"
)

// Well-known permission names the console gates navigation on.
const (
	PermUserRead     = "USER_READ"
	PermUserCreate   = "USER_CREATE"
	PermUserUpdate   = "USER_UPDATE"
	PermUserDelete   = "USER_DELETE"
	PermRoleRead     = "ROLE_READ"
	PermSystemManage = "SYSTEM_MANAGE"
)

// DirectGroupName names the synthetic group that holds roles assigned to a
// user outside any real group.
const DirectGroupName = "direct"

// Permission is an atomic authorizable action on a resource (e.g. "USER_READ").
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Action      string `json:"action,omitempty"`
}

// Role is a named bundle of permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission reports whether the role carries the named permission.
func (r Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Group is the primary assignment source of roles.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Roles       []Role    `json:"roles"`
	Users       []User    `json:"users,omitempty"`
	UserCount   int       `json:"userCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether the group's detail view lists the user.
func (g Group) HasMember(userID int64) bool {
	for _, u := range g.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// User models an account as seen by the console. It doubles as the Principal
// once the account is the authenticated one.
//
// Groups is the canonical assignment; Roles is always derived from it.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Enabled   bool       `json:"enabled"`
	Groups    []Group    `json:"groups"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Roles returns the effective roles: the union of every group's roles,
// deduplicated by role ID, in first-seen order.
func (u *User) Roles() []Role {
	if u == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	var roles []Role
	for _, g := range u.Groups {
		for _, r := range g.Roles {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			roles = append(roles, r)
		}
	}
	return roles
}

// RoleIDs returns the sorted IDs of the effective roles.
func (u *User) RoleIDs() []int64 {
	roles := u.Roles()
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsDeleted reports whether the user is soft-deleted.
func (u *User) IsDeleted() bool {
	return u != nil && u.DeletedAt != nil
}

// State returns the user's lifecycle state.
func (u *User) State() UserState {
	if u.IsDeleted() {
		return StateSoftDeleted
	}
	return StateActive
}

// WithDirectRoles returns groups with roles folded in as a synthetic direct
// assignment group. Used when a response carries flattened roles only.
func WithDirectRoles(groups []Group, roles []Role) []Group {
	if len(roles) == 0 {
		return groups
	}
	out := make([]Group, 0, len(groups)+1)
	out = append(out, groups...)
	return append(out, Group{Name: DirectGroupName, Roles: roles})
}
