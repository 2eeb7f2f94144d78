package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
)

// GroupService is the group management surface.
type GroupService interface {
	List(ctx context.Context) ([]domain.Group, error)
	Create(ctx context.Context, in ports.GroupInput) (*domain.Group, error)
	Update(ctx context.Context, id int64, in ports.GroupInput) (*domain.Group, error)
	Delete(ctx context.Context, id int64, confirmed bool) error
	Members(ctx context.Context, id int64) (*service.GroupMembers, error)
}

// GroupHandler serves group CRUD and membership. Membership views are kept
// per group so a selection survives between requests.
type GroupHandler struct {
	groups GroupService

	mu      sync.Mutex
	members map[int64]*service.GroupMembers
}

func NewGroupHandler(groups GroupService) *GroupHandler {
	return &GroupHandler{groups: groups, members: make(map[int64]*service.GroupMembers)}
}

// List returns every group.
//
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Success      200  {array}   domain.Group
// @Failure      403  {object}  map[string]string
// @Router       /groups [get]
func (h *GroupHandler) List(c echo.Context) error {
	groups, err := h.groups.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

// Create adds a group.
//
// @Summary      Create group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        body  body      ports.GroupInput  true  "Group"
// @Success      201   {object}  domain.Group
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /groups [post]
func (h *GroupHandler) Create(c echo.Context) error {
	var in ports.GroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	g, err := h.groups.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

// Update changes a group's name, description and roles.
//
// @Summary      Update group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Group ID"
// @Param        body  body      ports.GroupInput  true  "Group"
// @Success      200   {object}  domain.Group
// @Router       /groups/{id} [put]
func (h *GroupHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in ports.GroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	g, err := h.groups.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	h.forget(id)
	return c.JSON(http.StatusOK, g)
}

// Delete removes a group. Requires confirm=true.
//
// @Summary      Delete group
// @Tags         groups
// @Param        id       path   int   true  "Group ID"
// @Param        confirm  query  bool  true  "Confirmation"
// @Success      204
// @Failure      409  {object}  map[string]string
// @Router       /groups/{id} [delete]
func (h *GroupHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.groups.Delete(c.Request().Context(), id, confirmed(c)); err != nil {
		return err
	}
	h.forget(id)
	return c.NoContent(http.StatusNoContent)
}

// Members returns the membership view of a group, loading it on first use.
//
// @Summary      Group membership
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  service.GroupMembersState
// @Failure      404  {object}  map[string]string
// @Router       /groups/{id}/members [get]
func (h *GroupHandler) Members(c echo.Context) error {
	m, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m.State())
}

// Reload re-fetches the group and the user directory.
//
// @Summary      Reload group membership
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  service.GroupMembersState
// @Router       /groups/{id}/members/reload [post]
func (h *GroupHandler) Reload(c echo.Context) error {
	m, err := h.view(c)
	if err != nil {
		return err
	}
	if err := m.Load(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m.State())
}

// ToggleCandidate flips one available user in the add selection.
//
// @Summary      Toggle a user to add
// @Tags         groups
// @Produce      json
// @Param        id      path      int  true  "Group ID"
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  service.GroupMembersState
// @Failure      404     {object}  map[string]string
// @Router       /groups/{id}/members/selection/{userId} [post]
func (h *GroupHandler) ToggleCandidate(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	m, err := h.view(c)
	if err != nil {
		return err
	}
	if !m.ToggleUser(userID) {
		return echo.NewHTTPError(http.StatusNotFound, "user is not available for this group")
	}
	return c.JSON(http.StatusOK, m.State())
}

// ClearCandidates empties the add selection.
//
// @Summary      Clear users to add
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  service.GroupMembersState
// @Router       /groups/{id}/members/selection [delete]
func (h *GroupHandler) ClearCandidates(c echo.Context) error {
	m, err := h.view(c)
	if err != nil {
		return err
	}
	m.ClearSelection()
	return c.JSON(http.StatusOK, m.State())
}

// AddSelected assigns every selected user to the group.
//
// @Summary      Add selected users
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  service.GroupMembersState
// @Failure      422  {object}  map[string]string
// @Router       /groups/{id}/members [post]
func (h *GroupHandler) AddSelected(c echo.Context) error {
	m, err := h.view(c)
	if err != nil {
		return err
	}
	if err := m.AddSelected(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m.State())
}

// RemoveMember takes a user out of the group. Requires confirm=true.
//
// @Summary      Remove member
// @Tags         groups
// @Produce      json
// @Param        id       path   int   true  "Group ID"
// @Param        userId   path   int   true  "User ID"
// @Param        confirm  query  bool  true  "Confirmation"
// @Success      200  {object}  service.GroupMembersState
// @Router       /groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	m, err := h.view(c)
	if err != nil {
		return err
	}
	if err := m.RemoveMember(c.Request().Context(), userID, confirmed(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m.State())
}

func (h *GroupHandler) view(c echo.Context) (*service.GroupMembers, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	m, ok := h.members[id]
	h.mu.Unlock()
	if ok {
		return m, nil
	}

	m, err = h.groups.Members(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.members[id]; ok {
		return existing, nil
	}
	h.members[id] = m
	return m, nil
}

// Reset drops every cached membership view.
func (h *GroupHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.members)
}

func (h *GroupHandler) forget(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, id)
}
