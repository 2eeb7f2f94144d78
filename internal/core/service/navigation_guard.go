package service

import (
	"context"
	"net/url"
	"strings"
)

const (
	LoginRoute          = "/login"
	RegisterRoute       = "/register"
	DefaultLandingRoute = "/dashboard"
	ReturnURLQueryParam = "returnUrl"
)

// AuthChecker is the read-only view of the session the guard needs.
type AuthChecker interface {
	IsAuthenticated(ctx context.Context) bool
}

// Decision is the outcome of a route-entry check.
type Decision struct {
	Allow    bool
	Redirect string
}

// NavigationGuard decides route entry from token presence alone. It makes no
// network call; a stale token is caught by the first API response instead.
type NavigationGuard struct {
	session AuthChecker
	landing string
}

// NewNavigationGuard returns a guard that sends authenticated users with no
// usable return URL to landing.
func NewNavigationGuard(session AuthChecker, landing string) *NavigationGuard {
	if landing == "" {
		landing = DefaultLandingRoute
	}
	return &NavigationGuard{session: session, landing: landing}
}

// CanEnter allows the target when authenticated, otherwise redirects to the
// login route carrying the target as returnUrl.
func (g *NavigationGuard) CanEnter(ctx context.Context, targetURL string) Decision {
	if g.session.IsAuthenticated(ctx) {
		return Decision{Allow: true}
	}
	q := url.Values{ReturnURLQueryParam: {targetURL}}
	return Decision{Redirect: LoginRoute + "?" + q.Encode()}
}

// PostLoginTarget returns where to go after a successful login: returnURL
// when it is a local path outside the auth pages, else the landing route.
func (g *NavigationGuard) PostLoginTarget(returnURL string) string {
	if !isLocalPath(returnURL) {
		return g.landing
	}
	u, err := url.Parse(returnURL)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return g.landing
	}
	if u.Path == LoginRoute || u.Path == RegisterRoute {
		return g.landing
	}
	return returnURL
}

// Landing returns the default post-login route.
func (g *NavigationGuard) Landing() string {
	return g.landing
}

func isLocalPath(s string) bool {
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "/\\")
}
