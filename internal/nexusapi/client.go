// Package nexusapi is the thin REST client for the Nexus backend's user
// management endpoints.
package nexusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/metrics"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB

	// ErrorTitle is the toast title for every failed call.
	ErrorTitle = "API Error"

	missingBaseURLMessage = "NEXUS_API_URL environment variable is not configured"
)

// TokenFunc returns the bearer token for a call.
type TokenFunc func(ctx context.Context) (string, error)

type Client struct {
	BaseURL string
	Token   TokenFunc
	HTTP    *http.Client
	Logger  *slog.Logger
}

// New returns a client. An empty baseURL is accepted; every call then fails
// with a configuration fault so the console can still start.
func New(baseURL string, token TokenFunc, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token TokenFunc) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

func (c *Client) ensureClient() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fault.Configuration(missingBaseURLMessage)
	}
	if c.Token == nil {
		return fault.Configuration("nexus api token source is not configured")
	}
	if c.HTTP == nil {
		return fault.Configuration("nexus api http client is not configured")
	}
	return nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (*PagedResponse[User], error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("pageNumber", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	var out PagedResponse[User]
	if err := c.do(ctx, http.MethodGet, "/users", "/users", q, &out); err != nil {
		return nil, c.report(ctx, err)
	}
	return &out, nil
}

// GetUser fetches one user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := c.getUser(ctx, userID)
	if err != nil {
		return nil, c.report(ctx, err)
	}
	return u, nil
}

// AddRole grants role to the user and returns the updated record.
func (c *Client) AddRole(ctx context.Context, userID string, role rbac.Role) (*User, error) {
	u, err := c.roleCall(ctx, http.MethodPost, userID, role)
	if err != nil {
		return nil, c.report(ctx, err)
	}
	return u, nil
}

// RemoveRole revokes role from the user and returns the updated record.
func (c *Client) RemoveRole(ctx context.Context, userID string, role rbac.Role) (*User, error) {
	u, err := c.roleCall(ctx, http.MethodDelete, userID, role)
	if err != nil {
		return nil, c.report(ctx, err)
	}
	return u, nil
}

func (c *Client) getUser(ctx context.Context, userID string) (*User, error) {
	var out User
	path := "/users/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, "/users/{id}", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) roleCall(ctx context.Context, method, userID string, role rbac.Role) (*User, error) {
	var out User
	path := "/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(string(role))
	if err := c.do(ctx, method, "/users/{id}/roles/{role}", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// report logs err and surfaces it once through the request's notifier.
func (c *Client) report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	c.logger().Error("nexus api call failed", "kind", fault.KindOf(err).String(), "error", err)
	notify.Send(ctx, notify.Error(fault.UserMessage(err), ErrorTitle))
	return err
}

func (c *Client) do(ctx context.Context, method, template, path string, query url.Values, out any) (err error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.APIRequestsTotal.WithLabelValues(method, template, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(method, template).Observe(time.Since(start).Seconds())
	}()

	if err := c.ensureClient(); err != nil {
		status = "config"
		return err
	}
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return fault.Configuration(fmt.Sprintf("invalid NEXUS_API_URL: %v", err))
	}

	token, err := c.Token(ctx)
	if err != nil {
		status = "unauthenticated"
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return fault.Transport(0, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nexus-console")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fault.Transport(0, "", fmt.Errorf("%s %s: %w", method, template, err))
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return formatAPIError(method, template, resp, body)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fault.Transport(resp.StatusCode, "", fmt.Errorf("%s %s: decode response: %w", method, template, err))
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", c.BaseURL)
	}
	basePath := strings.TrimRight(u.EscapedPath(), "/")
	u, err = u.Parse(basePath + path)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	u.Fragment = ""
	return u.String(), nil
}

// formatAPIError prefers the structured body message; otherwise the fault
// message falls back to the status line and any raw body text.
func formatAPIError(method, template string, resp *http.Response, body []byte) *fault.Error {
	raw := strings.TrimSpace(string(bytes.ToValidUTF8(body, nil)))

	var apiErr APIError
	message := ""
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = strings.TrimSpace(apiErr.Message)
	} else {
		var s string
		if json.Unmarshal(body, &s) == nil {
			raw = strings.TrimSpace(s)
		}
	}

	cause := fmt.Sprintf("%s %s: %s", method, template, resp.Status)
	if message == "" && raw != "" && !strings.HasPrefix(raw, "{") {
		if len(raw) > 256 {
			raw = raw[:256]
		}
		cause += ": " + raw
	}

	fe := fault.Transport(resp.StatusCode, message, errors.New(cause))
	fe.Code = strconv.Itoa(resp.StatusCode)
	if len(apiErr.Errors) > 0 {
		fe.Fields = apiErr.Errors
	}
	return fe
}
