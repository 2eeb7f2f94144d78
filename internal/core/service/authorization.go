package service

import "github.com/adminkit/admin-console/internal/core/domain"

// HasPermission reports whether any of the principal's roles carries the
// named permission. A nil principal or one without roles has none.
func HasPermission(p *domain.User, permission string) bool {
	for _, r := range p.Roles() {
		if r.HasPermission(permission) {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the principal holds at least one of permissions.
func HasAnyPermission(p *domain.User, permissions ...string) bool {
	for _, perm := range permissions {
		if HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// HasRole reports whether any of the principal's roles is named roleName.
func HasRole(p *domain.User, roleName string) bool {
	for _, r := range p.Roles() {
		if r.Name == roleName {
			return true
		}
	}
	return false
}

// NavItem is an entry of the console navigation. An empty Permission means
// every authenticated principal sees it.
type NavItem struct {
	Label      string `json:"label"`
	Route      string `json:"route"`
	Permission string `json:"permission,omitempty"`
}

var navItems = []NavItem{
	{Label: "Dashboard", Route: "/dashboard"},
	{Label: "Users", Route: "/users", Permission: domain.PermUserRead},
	{Label: "Groups", Route: "/groups", Permission: domain.PermSystemManage},
	{Label: "Audit Logs", Route: "/audit-logs", Permission: domain.PermSystemManage},
	{Label: "Profile", Route: "/profile"},
	{Label: "Settings", Route: "/settings"},
}

// VisibleNavItems returns the navigation entries the principal may see.
func VisibleNavItems(p *domain.User) []NavItem {
	out := make([]NavItem, 0, len(navItems))
	for _, item := range navItems {
		if item.Permission == "" || HasPermission(p, item.Permission) {
			out = append(out, item)
		}
	}
	return out
}
