package restapi

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// apiTime accepts RFC 3339 as well as zoneless timestamps, which the admin
// API emits for local date-times. Zoneless values are read as UTC.
type apiTime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp %q has an unknown layout", s)
}

type authResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	User         *userDTO `json:"user"`
}

func (r authResponse) toDomain() *domain.Session {
	s := &domain.Session{
		Credentials: domain.Credentials{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
		TokenType:   r.TokenType,
		ExpiresIn:   time.Duration(r.ExpiresIn) * time.Second,
	}
	if r.User != nil {
		u := r.User.toDomain()
		s.User = &u
	}
	return s
}

// userDTO carries both the current groups field and the legacy flattened
// roles field.
type userDTO struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Enabled   bool          `json:"enabled"`
	Groups    []groupDTO    `json:"groups"`
	Roles     []domain.Role `json:"roles"`
	DeletedAt *apiTime      `json:"deletedAt"`
	CreatedAt apiTime       `json:"createdAt"`
	UpdatedAt apiTime       `json:"updatedAt"`
}

// toDomain folds roles not covered by any group into the synthetic direct
// group, so Groups alone determines the effective roles.
func (d userDTO) toDomain() domain.User {
	groups := make([]domain.Group, 0, len(d.Groups))
	covered := make(map[int64]struct{})
	for _, g := range d.Groups {
		groups = append(groups, g.toDomain())
		for _, r := range g.Roles {
			covered[r.ID] = struct{}{}
		}
	}
	var direct []domain.Role
	for _, r := range d.Roles {
		if _, ok := covered[r.ID]; !ok {
			direct = append(direct, r)
		}
	}

	u := domain.User{
		ID:        d.ID,
		Username:  d.Username,
		Email:     d.Email,
		Enabled:   d.Enabled,
		Groups:    domain.WithDirectRoles(groups, direct),
		CreatedAt: d.CreatedAt.Time,
		UpdatedAt: d.UpdatedAt.Time,
	}
	if d.DeletedAt != nil && !d.DeletedAt.IsZero() {
		t := d.DeletedAt.Time
		u.DeletedAt = &t
	}
	return u
}

type groupDTO struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Roles       []domain.Role `json:"roles"`
	Users       []userDTO     `json:"users"`
	UserCount   int           `json:"userCount"`
	CreatedAt   apiTime       `json:"createdAt"`
	UpdatedAt   apiTime       `json:"updatedAt"`
}

func (d groupDTO) toDomain() domain.Group {
	g := domain.Group{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Roles:       d.Roles,
		UserCount:   d.UserCount,
		CreatedAt:   d.CreatedAt.Time,
		UpdatedAt:   d.UpdatedAt.Time,
	}
	for _, u := range d.Users {
		g.Users = append(g.Users, u.toDomain())
	}
	return g
}

type pageDTO[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

func mapPage[T, U any](p pageDTO[T], conv func(T) U) *domain.Page[U] {
	out := &domain.Page[U]{
		Content:       make([]U, 0, len(p.Content)),
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Size:          p.Size,
		Number:        p.Number,
	}
	for _, v := range p.Content {
		out.Content = append(out.Content, conv(v))
	}
	return out
}

type auditLogDTO struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"userId"`
	Username   string  `json:"username"`
	Action     string  `json:"action"`
	Resource   string  `json:"resource"`
	ResourceID string  `json:"resourceId"`
	Metadata   string  `json:"metadata"`
	IPAddress  string  `json:"ipAddress"`
	CreatedAt  apiTime `json:"createdAt"`
}

func (d auditLogDTO) toDomain() domain.AuditLog {
	return domain.AuditLog{
		ID:         d.ID,
		UserID:     d.UserID,
		Username:   d.Username,
		Action:     d.Action,
		Resource:   d.Resource,
		ResourceID: d.ResourceID,
		Metadata:   d.Metadata,
		IPAddress:  d.IPAddress,
		CreatedAt:  d.CreatedAt.Time,
	}
}

type bulkRequest struct {
	UserIDs []int64 `json:"userIds"`
}

type bulkStatusRequest struct {
	UserIDs []int64 `json:"userIds"`
	Enabled bool    `json:"enabled"`
}

// errorEnvelope is the admin API's error body.
type errorEnvelope struct {
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors"`
}
