package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
)

// ── Groups ────────────────────────────────────────────────────────────────────

func (c *Client) ListGroups(ctx context.Context) ([]domain.Group, error) {
	var dtos []groupDTO
	if err := c.do(ctx, call{method: http.MethodGet, route: "/groups", path: "/groups"}, &dtos); err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(dtos))
	for _, d := range dtos {
		groups = append(groups, d.toDomain())
	}
	return groups, nil
}

func (c *Client) GetGroup(ctx context.Context, id int64) (*domain.Group, error) {
	return c.groupCall(ctx, call{method: http.MethodGet, route: "/groups/{id}", path: idPath("/groups/%d", id)})
}

func (c *Client) CreateGroup(ctx context.Context, in ports.GroupInput) (*domain.Group, error) {
	return c.groupCall(ctx, call{method: http.MethodPost, route: "/groups", path: "/groups", body: in})
}

func (c *Client) UpdateGroup(ctx context.Context, id int64, in ports.GroupInput) (*domain.Group, error) {
	return c.groupCall(ctx, call{method: http.MethodPut, route: "/groups/{id}", path: idPath("/groups/%d", id), body: in})
}

func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/groups/{id}", path: idPath("/groups/%d", id)}, nil)
}

func (c *Client) AssignUsers(ctx context.Context, groupID int64, userIDs []int64) (*domain.Group, error) {
	return c.groupCall(ctx, call{
		method: http.MethodPost,
		route:  "/groups/{id}/users",
		path:   idPath("/groups/%d/users", groupID),
		body:   bulkRequest{UserIDs: userIDs},
	})
}

func (c *Client) RemoveUser(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/groups/{id}/users/{userId}",
		path:   idPath("/groups/%d/users/%d", groupID, userID),
	}, nil)
}

func (c *Client) groupCall(ctx context.Context, r call) (*domain.Group, error) {
	var dto groupDTO
	if err := c.do(ctx, r, &dto); err != nil {
		return nil, err
	}
	g := dto.toDomain()
	return &g, nil
}

// ── Profile ───────────────────────────────────────────────────────────────────

func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, call{method: http.MethodGet, route: "/profile/me", path: "/profile/me"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in domain.Profile) (*domain.Profile, error) {
	var p domain.Profile
	err := c.do(ctx, call{method: http.MethodPut, route: "/profile/me", path: "/profile/me", body: in}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Audit logs ────────────────────────────────────────────────────────────────

func (c *Client) ListAuditLogs(ctx context.Context, page, size int) (*domain.Page[domain.AuditLog], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var dto pageDTO[auditLogDTO]
	err := c.do(ctx, call{method: http.MethodGet, route: "/audit-logs", path: "/audit-logs", query: q}, &dto)
	if err != nil {
		return nil, err
	}
	return mapPage(dto, auditLogDTO.toDomain), nil
}

var (
	_ ports.AuthAPI    = (*Client)(nil)
	_ ports.UserAPI    = (*Client)(nil)
	_ ports.GroupAPI   = (*Client)(nil)
	_ ports.ProfileAPI = (*Client)(nil)
	_ ports.AuditAPI   = (*Client)(nil)
)
