package domain

import "time"

// Credentials is the access/refresh bearer pair. Both values are opaque.
type Credentials struct {
	AccessToken  string `json:"accessToken"  yaml:"access_token"  bson:"access_token"`
	RefreshToken string `json:"refreshToken" yaml:"refresh_token" bson:"refresh_token"`
}

// IsZero reports whether neither slot holds a token.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Session is the outcome of a successful login, register or refresh.
type Session struct {
	Credentials Credentials
	TokenType   string
	ExpiresIn   time.Duration
	User        *User
}

// Preferences are UI flags persisted next to the credentials.
type Preferences struct {
	DarkMode         bool `json:"darkMode"         yaml:"dark_mode"         bson:"dark_mode"`
	SidebarCollapsed bool `json:"sidebarCollapsed" yaml:"sidebar_collapsed" bson:"sidebar_collapsed"`
}

// Profile is the extended, optional personal data of the principal.
type Profile struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// IsEmpty reports whether no profile field is set.
func (p Profile) IsEmpty() bool {
	return p == Profile{}
}

// AuditLog is a single entry of the server-side audit trail.
type AuditLog struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId"`
	Metadata   string    `json:"metadata,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
