package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
)

// UserList is the list controller behind the users view.
type UserList interface {
	State() service.UserListState
	Refresh(ctx context.Context) error
	Search(term string)
	SubmitSearch(ctx context.Context, term string) error
	SetRoleFilter(ctx context.Context, role string) error
	SetStatusFilter(ctx context.Context, status domain.StatusFilter) error
	SetIncludeDeleted(ctx context.Context, include bool) error
	ToggleSort(ctx context.Context, field string) error
	SetPageSize(ctx context.Context, size int) error
	NextPage(ctx context.Context) (bool, error)
	PreviousPage(ctx context.Context) (bool, error)
	GoToPage(ctx context.Context, n int) error
	ToggleSelection(id int64) bool
	ToggleAllOnPage()
	ClearSelection()
	BulkDelete(ctx context.Context) (*domain.BulkResult, error)
	BulkSetEnabled(ctx context.Context, enabled bool) (*domain.BulkResult, error)
	DeleteUser(ctx context.Context, id int64, confirmed bool) error
	RestoreUser(ctx context.Context, id int64, confirmed bool) error
	PurgeUser(ctx context.Context, id int64, typed string) error
}

type UserHandler struct {
	list UserList
}

func NewUserHandler(list UserList) *UserHandler {
	return &UserHandler{list: list}
}

type searchRequest struct {
	Term      string `json:"term"`
	Immediate bool   `json:"immediate"`
}

type filtersRequest struct {
	Role           *string `json:"role"`
	Status         *string `json:"status"`
	IncludeDeleted *bool   `json:"includeDeleted"`
}

type sortRequest struct {
	Field string `json:"field" validate:"required"`
}

type pageSizeRequest struct {
	Size int `json:"size" validate:"required,min=1,max=100"`
}

type pageRequest struct {
	Page int `json:"page" validate:"min=0"`
}

type bulkStatusRequest struct {
	Enabled bool `json:"enabled"`
}

type purgeRequest struct {
	Username string `json:"username"`
}

type bulkResponse struct {
	Result *domain.BulkResult    `json:"result"`
	State  service.UserListState `json:"state"`
}

// List returns the current list state, loading the first page on demand.
//
// @Summary      User list state
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Failure      302
// @Failure      403  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	if h.list.State().Page == nil {
		if err := h.list.Refresh(c.Request().Context()); err != nil {
			return err
		}
	}
	return h.state(c)
}

// Refresh re-fetches the current query.
//
// @Summary      Reload the user list
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Router       /users/refresh [post]
func (h *UserHandler) Refresh(c echo.Context) error {
	if err := h.list.Refresh(c.Request().Context()); err != nil {
		return err
	}
	return h.state(c)
}

// Search feeds the free-text search. Without immediate the term is
// debounced and the call answers 202.
//
// @Summary      Search users
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      searchRequest  true  "Search term"
// @Success      200   {object}  service.UserListState
// @Success      202   {object}  service.UserListState
// @Router       /users/search [put]
func (h *UserHandler) Search(c echo.Context) error {
	var req searchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.Immediate {
		h.list.Search(req.Term)
		return c.JSON(http.StatusAccepted, h.list.State())
	}
	if err := h.list.SubmitSearch(c.Request().Context(), req.Term); err != nil {
		return err
	}
	return h.state(c)
}

// Filters changes any of the role, status and deleted filters.
//
// @Summary      Filter users
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      filtersRequest  true  "Filters to change"
// @Success      200   {object}  service.UserListState
// @Failure      400   {object}  map[string]string
// @Router       /users/filters [put]
func (h *UserHandler) Filters(c echo.Context) error {
	var req filtersRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if req.Role != nil {
		if err := h.list.SetRoleFilter(ctx, *req.Role); err != nil {
			return err
		}
	}
	if req.Status != nil {
		if err := h.list.SetStatusFilter(ctx, domain.StatusFilter(*req.Status)); err != nil {
			return err
		}
	}
	if req.IncludeDeleted != nil {
		if err := h.list.SetIncludeDeleted(ctx, *req.IncludeDeleted); err != nil {
			return err
		}
	}
	return h.state(c)
}

// Sort toggles sorting on a column.
//
// @Summary      Sort users
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      sortRequest  true  "Sort column"
// @Success      200   {object}  service.UserListState
// @Router       /users/sort [post]
func (h *UserHandler) Sort(c echo.Context) error {
	var req sortRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.list.ToggleSort(c.Request().Context(), req.Field); err != nil {
		return err
	}
	return h.state(c)
}

// PageSize changes the page size.
//
// @Summary      Change page size
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      pageSizeRequest  true  "Page size"
// @Success      200   {object}  service.UserListState
// @Router       /users/page-size [put]
func (h *UserHandler) PageSize(c echo.Context) error {
	var req pageSizeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.list.SetPageSize(c.Request().Context(), req.Size); err != nil {
		return err
	}
	return h.state(c)
}

// NextPage moves forward; at the last page it is a no-op.
//
// @Summary      Next page
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Router       /users/page/next [post]
func (h *UserHandler) NextPage(c echo.Context) error {
	if _, err := h.list.NextPage(c.Request().Context()); err != nil {
		return err
	}
	return h.state(c)
}

// PreviousPage moves back; at the first page it is a no-op.
//
// @Summary      Previous page
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Router       /users/page/previous [post]
func (h *UserHandler) PreviousPage(c echo.Context) error {
	if _, err := h.list.PreviousPage(c.Request().Context()); err != nil {
		return err
	}
	return h.state(c)
}

// GoToPage jumps to an existing page.
//
// @Summary      Go to page
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      pageRequest  true  "Zero-based page"
// @Success      200   {object}  service.UserListState
// @Failure      400   {object}  map[string]string
// @Router       /users/page [put]
func (h *UserHandler) GoToPage(c echo.Context) error {
	var req pageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.list.GoToPage(c.Request().Context(), req.Page); err != nil {
		return err
	}
	return h.state(c)
}

// ToggleSelection flips one user in the bulk selection.
//
// @Summary      Toggle selection
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  service.UserListState
// @Failure      404  {object}  map[string]string
// @Router       /users/selection/{id} [post]
func (h *UserHandler) ToggleSelection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if !h.list.ToggleSelection(id) {
		return echo.NewHTTPError(http.StatusNotFound, "user is not part of the listed results")
	}
	return h.state(c)
}

// ToggleAll selects or deselects every user on the current page.
//
// @Summary      Toggle the whole page
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Router       /users/selection/page [post]
func (h *UserHandler) ToggleAll(c echo.Context) error {
	h.list.ToggleAllOnPage()
	return h.state(c)
}

// ClearSelection empties the bulk selection.
//
// @Summary      Clear selection
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.UserListState
// @Router       /users/selection [delete]
func (h *UserHandler) ClearSelection(c echo.Context) error {
	h.list.ClearSelection()
	return h.state(c)
}

// BulkDelete soft-deletes every selected user.
//
// @Summary      Bulk delete
// @Tags         users
// @Produce      json
// @Success      200  {object}  bulkResponse
// @Failure      422  {object}  map[string]string
// @Router       /users/bulk/delete [post]
func (h *UserHandler) BulkDelete(c echo.Context) error {
	res, err := h.list.BulkDelete(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bulkResponse{Result: res, State: h.list.State()})
}

// BulkStatus enables or disables every selected user.
//
// @Summary      Bulk enable or disable
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      bulkStatusRequest  true  "Target state"
// @Success      200   {object}  bulkResponse
// @Failure      422   {object}  map[string]string
// @Router       /users/bulk/status [post]
func (h *UserHandler) BulkStatus(c echo.Context) error {
	var req bulkStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.list.BulkSetEnabled(c.Request().Context(), req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bulkResponse{Result: res, State: h.list.State()})
}

// Delete soft-deletes one user. Requires confirm=true.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Param        id       path   int   true  "User ID"
// @Param        confirm  query  bool  true  "Confirmation"
// @Success      200  {object}  service.UserListState
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.list.DeleteUser(c.Request().Context(), id, confirmed(c)); err != nil {
		return err
	}
	return h.state(c)
}

// Restore brings back a soft-deleted user. Requires confirm=true.
//
// @Summary      Restore user
// @Tags         users
// @Produce      json
// @Param        id       path   int   true  "User ID"
// @Param        confirm  query  bool  true  "Confirmation"
// @Success      200  {object}  service.UserListState
// @Router       /users/{id}/restore [post]
func (h *UserHandler) Restore(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.list.RestoreUser(c.Request().Context(), id, confirmed(c)); err != nil {
		return err
	}
	return h.state(c)
}

// Purge permanently removes a soft-deleted user. The body must repeat the
// username exactly.
//
// @Summary      Purge user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int           true  "User ID"
// @Param        body  body      purgeRequest  true  "Typed username"
// @Success      200   {object}  service.UserListState
// @Failure      422   {object}  map[string]string
// @Router       /users/{id}/purge [post]
func (h *UserHandler) Purge(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req purgeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.list.PurgeUser(c.Request().Context(), id, req.Username); err != nil {
		return err
	}
	return h.state(c)
}

func (h *UserHandler) state(c echo.Context) error {
	return c.JSON(http.StatusOK, h.list.State())
}
