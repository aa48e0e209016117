// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/nexus-console/nexus-console/internal/config"
	"github.com/nexus-console/nexus-console/internal/http/authn"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/http/views"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"github.com/nexus-console/nexus-console/internal/session"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

var errNoSession = errors.New("auth session not available")

// SessionRegistry resolves and drops the per-browser auth sessions.
type SessionRegistry interface {
	Get(ctx context.Context) (*session.Session, error)
	Forget(ctx context.Context)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Sessions *scs.SessionManager
	Registry SessionRegistry
	Provider identity.Provider
	API      *nexusapi.Client
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// session returns the session attached by the route guard, resolving it
// from the registry when the guard was skipped.
func (h *Handlers) session(c *echo.Context) (*session.Session, error) {
	if s, ok := authn.SessionFromContext(c); ok {
		return s, nil
	}
	if h.Registry == nil {
		return nil, errNoSession
	}
	s, err := h.Registry.Get(c.Request().Context())
	if s == nil && err == nil {
		err = errNoSession
	}
	return s, err
}

// api returns the Nexus client authenticated as the signed-in operator.
func (h *Handlers) api(sess *session.Session) *nexusapi.Client {
	client := h.API
	if client == nil {
		client = nexusapi.New(h.Cfg.NexusAPIURL, nil, h.Cfg.NexusAPITimeout, h.logger())
	}
	return client.WithToken(sess.IDToken)
}

func csrfToken(c *echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// LayoutData builds the common layout data for page rendering.
func (h *Handlers) LayoutData(c *echo.Context, sess *session.Session, title string) viewmodels.LayoutData {
	path := c.Request().URL.Path
	layout := viewmodels.LayoutData{
		Title:      title,
		CSRFToken:  csrfToken(c),
		Toast:      takeToast(c),
		ActivePath: path,
	}
	if sess == nil {
		return layout
	}
	principal := sess.Principal()
	if principal == nil {
		return layout
	}

	layout.UserEmail = principal.Email
	layout.UserName = principal.Name()
	layout.UserInitials = views.UserInitials(principal.DisplayName, principal.Email)
	layout.Roles = roleBadges(principal.Roles)
	layout.IsAdmin = principal.IsAdmin()
	layout.NeedsEmailVerification = sess.NeedsEmailVerification()
	for _, item := range sess.Navigator().Menu(path) {
		layout.Menu = append(layout.Menu, viewmodels.MenuItem{
			Label:  item.Label,
			Href:   string(item.Route),
			Active: item.Active,
		})
	}
	return layout
}

func roleBadges(roles rbac.RoleSet) []viewmodels.RoleBadge {
	out := make([]viewmodels.RoleBadge, 0, roles.Len())
	for _, r := range roles.Slice() {
		out = append(out, viewmodels.RoleBadge{
			Value: string(r),
			Label: r.Label(),
			Class: views.RoleBadgeClass(string(r)),
		})
	}
	return out
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
