package restapi

import (
	"context"
	"net/http"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
)

func (c *Client) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
	var resp authResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/auth/login",
		path:     "/auth/login",
		body:     in,
		endpoint: endpointLogin,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*domain.Session, error) {
	var resp authResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/auth/register",
		path:     "/auth/register",
		body:     in,
		endpoint: endpointRegister,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// Refresh sends the refresh token as the bearer credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var resp authResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/auth/refresh",
		path:     "/auth/refresh",
		endpoint: endpointRefresh,
		bearer:   refreshToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}
