package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
)

// searchParams renders a query as GET /users parameters. Empty filters are
// left out; showDeleted is only sent when set.
func searchParams(q domain.SearchQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	size := q.PageSize
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	v.Set("size", strconv.Itoa(size))
	if q.SearchTerm != "" {
		v.Set("search", q.SearchTerm)
	}
	if q.RoleFilter != "" {
		v.Set("role", q.RoleFilter)
	}
	if enabled := q.StatusFilter.Enabled(); enabled != nil {
		v.Set("enabled", strconv.FormatBool(*enabled))
	}
	if q.IncludeDeleted {
		v.Set("showDeleted", "true")
	}
	if sort := q.Sort(); sort != "" {
		v.Set("sort", sort)
	}
	return v
}

func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (*domain.Page[domain.User], error) {
	var page pageDTO[userDTO]
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/users",
		path:   "/users",
		query:  searchParams(q),
	}, &page)
	if err != nil {
		return nil, err
	}
	return mapPage(page, userDTO.toDomain), nil
}

func (c *Client) Get(ctx context.Context, id int64) (*domain.User, error) {
	return c.userCall(ctx, http.MethodGet, "/users/{id}", idPath("/users/%d", id), nil)
}

func (c *Client) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return c.userCall(ctx, http.MethodPost, "/users", "/users", in)
}

func (c *Client) Update(ctx context.Context, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	return c.userCall(ctx, http.MethodPut, "/users/{id}", idPath("/users/%d", id), in)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/users/{id}",
		path:   idPath("/users/%d", id),
	}, nil)
}

func (c *Client) Restore(ctx context.Context, id int64) (*domain.User, error) {
	return c.userCall(ctx, http.MethodPost, "/users/{id}/restore", idPath("/users/%d/restore", id), nil)
}

func (c *Client) Purge(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/users/{id}/purge",
		path:   idPath("/users/%d/purge", id),
	}, nil)
}

func (c *Client) BulkDelete(ctx context.Context, ids []int64) (*domain.BulkResult, error) {
	var res domain.BulkResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/users/bulk/delete",
		path:   "/users/bulk/delete",
		body:   bulkRequest{UserIDs: ids},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) BulkSetStatus(ctx context.Context, ids []int64, enabled bool) (*domain.BulkResult, error) {
	var res domain.BulkResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/users/bulk/status",
		path:   "/users/bulk/status",
		body:   bulkStatusRequest{UserIDs: ids, Enabled: enabled},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := c.do(ctx, call{method: http.MethodGet, route: "/roles", path: "/roles"}, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) userCall(ctx context.Context, method, route, path string, body any) (*domain.User, error) {
	var dto userDTO
	if err := c.do(ctx, call{method: method, route: route, path: path, body: body}, &dto); err != nil {
		return nil, err
	}
	u := dto.toDomain()
	return &u, nil
}
