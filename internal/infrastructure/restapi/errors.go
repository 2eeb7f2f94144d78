package restapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// endpoint classifies a route for error mapping and token handling.
type endpoint int

const (
	endpointResource endpoint = iota
	endpointLogin
	endpointRegister
	endpointRefresh
)

func (e endpoint) isAuth() bool {
	return e != endpointResource
}

// decodeError turns a non-2xx answer into a *domain.APIError carrying the
// server message and the matching taxonomy kinds.
func decodeError(ep endpoint, status int, body []byte) error {
	var env errorEnvelope
	if len(body) > 0 {
		_ = json.Unmarshal(body, &env)
	}
	apiErr := domain.NewAPIError(status, env.Message, kindsFor(ep, status, env.Message)...)
	apiErr.ValidationErrors = env.ValidationErrors
	return apiErr
}

func kindsFor(ep endpoint, status int, message string) []error {
	if ep == endpointRefresh {
		return refreshKinds(status)
	}
	switch status {
	case http.StatusBadRequest:
		return []error{domain.ErrValidation}
	case http.StatusUnauthorized:
		if ep == endpointLogin {
			return []error{domain.ErrInvalidCredentials}
		}
		return []error{domain.ErrUnauthenticated}
	case http.StatusForbidden:
		return []error{domain.ErrForbidden}
	case http.StatusNotFound:
		return []error{domain.ErrNotFound}
	case http.StatusConflict:
		lower := strings.ToLower(message)
		switch {
		case strings.Contains(lower, "email"):
			return []error{domain.ErrEmailTaken, domain.ErrConflict}
		case strings.Contains(lower, "username"):
			return []error{domain.ErrUsernameTaken, domain.ErrConflict}
		}
		return []error{domain.ErrConflict}
	case http.StatusTooManyRequests:
		return []error{domain.ErrRateLimited}
	}
	return []error{domain.ErrUnknown}
}

// refreshKinds treats any rejection of a refresh as a dead refresh token.
// The admin API answers an unknown or expired token with a 500.
func refreshKinds(status int) []error {
	switch {
	case status == http.StatusTooManyRequests:
		return []error{domain.ErrInvalidRefreshToken, domain.ErrRateLimited}
	case status >= http.StatusInternalServerError:
		return []error{domain.ErrInvalidRefreshToken, domain.ErrUnknown}
	}
	return []error{domain.ErrInvalidRefreshToken}
}
