package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
)

// EditPanel is the create/update panel of the users view.
type EditPanel interface {
	OpenCreate()
	OpenEdit(u domain.User)
	Update(f service.UserForm)
	Cancel()
	State() service.EditPanelState
	Submit(ctx context.Context) (service.SubmitOutcome, error)
}

// UserDirectory looks up what the panel needs beyond the list.
type UserDirectory interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

type EditPanelHandler struct {
	panel EditPanel
	users UserDirectory
}

func NewEditPanelHandler(panel EditPanel, users UserDirectory) *EditPanelHandler {
	return &EditPanelHandler{panel: panel, users: users}
}

type submitResponse struct {
	Outcome service.SubmitOutcome  `json:"outcome"`
	Panel   service.EditPanelState `json:"panel"`
}

// State returns the panel snapshot.
//
// @Summary      Edit panel state
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.EditPanelState
// @Router       /users/panel [get]
func (h *EditPanelHandler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.panel.State())
}

// Roles lists the roles the panel offers.
//
// @Summary      Assignable roles
// @Tags         users
// @Produce      json
// @Success      200  {array}  domain.Role
// @Router       /users/roles [get]
func (h *EditPanelHandler) Roles(c echo.Context) error {
	roles, err := h.users.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// OpenCreate opens an empty panel.
//
// @Summary      Open the create panel
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.EditPanelState
// @Router       /users/panel/create [post]
func (h *EditPanelHandler) OpenCreate(c echo.Context) error {
	h.panel.OpenCreate()
	return c.JSON(http.StatusOK, h.panel.State())
}

// OpenEdit loads a user into the panel.
//
// @Summary      Open the edit panel
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  service.EditPanelState
// @Failure      404  {object}  map[string]string
// @Router       /users/{id}/edit [post]
func (h *EditPanelHandler) OpenEdit(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	h.panel.OpenEdit(*u)
	return c.JSON(http.StatusOK, h.panel.State())
}

// Update replaces the draft. Validation runs on submit.
//
// @Summary      Edit the draft
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      service.UserForm  true  "Draft"
// @Success      200   {object}  service.EditPanelState
// @Failure      409   {object}  map[string]string
// @Router       /users/panel [put]
func (h *EditPanelHandler) Update(c echo.Context) error {
	if !h.panel.State().Open {
		return echo.NewHTTPError(http.StatusConflict, "panel is closed")
	}
	var form service.UserForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	h.panel.Update(form)
	return c.JSON(http.StatusOK, h.panel.State())
}

// ToggleRole adds or removes one role from the draft.
//
// @Summary      Toggle a role in the draft
// @Tags         users
// @Produce      json
// @Param        roleId  path      int  true  "Role ID"
// @Success      200     {object}  service.EditPanelState
// @Router       /users/panel/roles/{roleId} [post]
func (h *EditPanelHandler) ToggleRole(c echo.Context) error {
	roleID, err := pathID(c, "roleId")
	if err != nil {
		return err
	}
	st := h.panel.State()
	if !st.Open {
		return echo.NewHTTPError(http.StatusConflict, "panel is closed")
	}
	form := st.Form
	form.ToggleRole(roleID)
	h.panel.Update(form)
	return c.JSON(http.StatusOK, h.panel.State())
}

// Submit validates and sends the draft.
//
// @Summary      Submit the panel
// @Tags         users
// @Produce      json
// @Success      200  {object}  submitResponse
// @Success      201  {object}  submitResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /users/panel/submit [post]
func (h *EditPanelHandler) Submit(c echo.Context) error {
	outcome, err := h.panel.Submit(c.Request().Context())
	if err != nil {
		return err
	}
	status := http.StatusOK
	if outcome == service.OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, submitResponse{Outcome: outcome, Panel: h.panel.State()})
}

// Cancel closes the panel and drops the draft.
//
// @Summary      Cancel the panel
// @Tags         users
// @Success      204
// @Router       /users/panel [delete]
func (h *EditPanelHandler) Cancel(c echo.Context) error {
	h.panel.Cancel()
	return c.NoContent(http.StatusNoContent)
}
