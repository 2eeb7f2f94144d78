package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
)

// AuditLogs pages through the audit trail.
type AuditLogs interface {
	State() service.AuditLogState
	Refresh(ctx context.Context) error
	GoToPage(ctx context.Context, n int) error
}

// Profiles reads and writes the principal's profile.
type Profiles interface {
	Get(ctx context.Context) (*domain.Profile, error)
	Update(ctx context.Context, f service.ProfileForm) (*domain.Profile, error)
}

// Preferences toggles the persisted UI flags.
type Preferences interface {
	Get(ctx context.Context) (domain.Preferences, error)
	ToggleDarkMode(ctx context.Context) (domain.Preferences, error)
	ToggleSidebar(ctx context.Context) (domain.Preferences, error)
}

type AccountHandler struct {
	audit AuditLogs
	prof  Profiles
	prefs Preferences
}

func NewAccountHandler(audit AuditLogs, prof Profiles, prefs Preferences) *AccountHandler {
	return &AccountHandler{audit: audit, prof: prof, prefs: prefs}
}

type auditEntry struct {
	domain.AuditLog
	Tone string `json:"tone"`
}

type auditResponse struct {
	Entries    []auditEntry `json:"entries"`
	Current    int          `json:"current"`
	TotalPages int          `json:"totalPages"`
	PageSize   int          `json:"pageSize"`
	Error      string       `json:"error,omitempty"`
}

// AuditLogs returns one page of the audit trail.
//
// @Summary      Audit logs
// @Tags         audit
// @Produce      json
// @Param        page  query     int  false  "Zero-based page"
// @Success      200   {object}  auditResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /audit-logs [get]
func (h *AccountHandler) AuditLogs(c echo.Context) error {
	ctx := c.Request().Context()
	if h.audit.State().Page == nil {
		if err := h.audit.Refresh(ctx); err != nil {
			return err
		}
	}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		if err := h.audit.GoToPage(ctx, n); err != nil {
			return err
		}
	}

	st := h.audit.State()
	resp := auditResponse{Current: st.Current, PageSize: st.PageSize, Error: st.Error, Entries: []auditEntry{}}
	if st.Page != nil {
		resp.TotalPages = st.Page.TotalPages
		for _, l := range st.Page.Content {
			resp.Entries = append(resp.Entries, auditEntry{AuditLog: l, Tone: service.ActionTone(l.Action)})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Profile returns the principal's profile; a missing one is empty.
//
// @Summary      Get profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  domain.Profile
// @Router       /profile [get]
func (h *AccountHandler) Profile(c echo.Context) error {
	p, err := h.prof.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProfile saves the editable profile fields.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      service.ProfileForm  true  "Profile"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  map[string]string
// @Router       /profile [put]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	var form service.ProfileForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	p, err := h.prof.Update(c.Request().Context(), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Preferences returns the UI flags.
//
// @Summary      Get preferences
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  domain.Preferences
// @Router       /preferences [get]
func (h *AccountHandler) Preferences(c echo.Context) error {
	return h.prefsResult(c, h.prefs.Get)
}

// ToggleDarkMode flips dark mode.
//
// @Summary      Toggle dark mode
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  domain.Preferences
// @Router       /preferences/dark-mode [post]
func (h *AccountHandler) ToggleDarkMode(c echo.Context) error {
	return h.prefsResult(c, h.prefs.ToggleDarkMode)
}

// ToggleSidebar flips the collapsed sidebar.
//
// @Summary      Toggle sidebar
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  domain.Preferences
// @Router       /preferences/sidebar [post]
func (h *AccountHandler) ToggleSidebar(c echo.Context) error {
	return h.prefsResult(c, h.prefs.ToggleSidebar)
}

func (h *AccountHandler) prefsResult(c echo.Context, fn func(ctx context.Context) (domain.Preferences, error)) error {
	p, err := fn(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
