// Package restapi is the console's client of the admin REST API. It
// implements the AuthAPI, UserAPI, GroupAPI, ProfileAPI and AuditAPI ports.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
	"github.com/adminkit/admin-console/internal/pkg/tokens"
)

const defaultTimeout = 15 * time.Second

// Client talks to the admin API. Resource requests carry the stored access
// token; a rejected or expired token is refreshed once through the
// configured Refresher and the request is replayed.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  ports.TokenStore
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	refresher ports.Refresher
}

// New builds a Client for baseURL (e.g. "http://localhost:8080/api").
func New(baseURL string, timeout time.Duration, store ports.TokenStore, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  store,
		log:     log,
		now:     time.Now,
	}
}

// SetRefresher wires the session owner. The session depends on the client
// for /auth/refresh, so it is attached after both are built.
func (c *Client) SetRefresher(r ports.Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) getRefresher() ports.Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

// Ping checks that the API answers at all. Any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/login", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

type call struct {
	method   string
	route    string
	path     string
	query    url.Values
	body     any
	endpoint endpoint
	// bearer overrides the stored access token.
	bearer string
}

func (c *Client) do(ctx context.Context, r call, out any) error {
	token := r.bearer
	if token == "" && !r.endpoint.isAuth() {
		token = c.accessToken(ctx)
	}

	status, body, err := c.send(ctx, r, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !r.endpoint.isAuth() {
		if fresh, ok := c.refresh(ctx); ok {
			metrics.APIRetriesTotal.Inc()
			status, body, err = c.send(ctx, r, fresh)
			if err != nil {
				return err
			}
		}
	}

	if status < 200 || status >= 300 {
		return decodeError(r.endpoint, status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrUnknown, r.method, r.route, err)
	}
	return nil
}

// accessToken returns the stored access token, refreshing it first when its
// exp claim has passed.
func (c *Client) accessToken(ctx context.Context) string {
	creds, err := c.tokens.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load credentials")
		return ""
	}
	if creds.AccessToken != "" && tokens.Expired(creds.AccessToken, c.now()) {
		if fresh, ok := c.refresh(ctx); ok {
			return fresh
		}
	}
	return creds.AccessToken
}

func (c *Client) refresh(ctx context.Context) (string, bool) {
	r := c.getRefresher()
	if r == nil {
		return "", false
	}
	sess, err := r.Refresh(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("token refresh before retry failed")
		return "", false
	}
	return sess.Credentials.AccessToken, true
}

func (c *Client) send(ctx context.Context, r call, token string) (int, []byte, error) {
	var reader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", r.method, r.route, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", r.method, r.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIRequestDuration.WithLabelValues(r.method, r.route, "error").Observe(time.Since(start).Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		c.log.Warn().Err(err).Str("method", r.method).Str("route", r.route).Msg("admin API unreachable")
		return 0, nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, r.method, r.route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.APIRequestDuration.WithLabelValues(r.method, r.route, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: read %s %s: %v", domain.ErrNetwork, r.method, r.route, err)
	}

	c.log.Debug().
		Str("method", r.method).
		Str("route", r.route).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("admin API call")
	return resp.StatusCode, body, nil
}

func idPath(format string, ids ...int64) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(format, args...)
}
