// Package authn is the authoritative route guard. Every guarded request
// walks START, AUTH_CHECK and PERMISSION_CHECK and ends allowed, redirected
// to /login or redirected to the dashboard. It never allows on error.
package authn

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/metrics"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"github.com/nexus-console/nexus-console/internal/session"
)

const (
	ContextKeySession   = "auth_session"
	ContextKeyPrincipal = "auth_principal"

	// RedirectParam carries the originally requested URI through /login.
	RedirectParam = "redirect"

	AuthErrorTitle   = "Authentication Error"
	AuthErrorMessage = "Authentication error. Please try signing in again."

	defaultReadyTimeout = 10 * time.Second
)

// Decision outcomes, also used as metric labels.
const (
	OutcomePrefetch          = "prefetch"
	OutcomeSkipped           = "skipped"
	OutcomePublic            = "public"
	OutcomeAllow             = "allow"
	OutcomeRedirectLogin     = "redirect_login"
	OutcomeRedirectDashboard = "redirect_dashboard"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeForbidden         = "forbidden"
	OutcomeError             = "error"
)

// SessionSource resolves the session of the browser behind a request.
// *session.Registry satisfies it.
type SessionSource interface {
	Get(ctx context.Context) (*session.Session, error)
}

type Config struct {
	Sessions SessionSource
	// Skipper bypasses the guard entirely, for health checks and assets.
	Skipper      func(c *echo.Context) bool
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

func SessionFromContext(c *echo.Context) (*session.Session, bool) {
	s, ok := c.Get(ContextKeySession).(*session.Session)
	return s, ok && s != nil
}

func PrincipalFromContext(c *echo.Context) (*auth.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(*auth.Principal)
	return p, ok && p != nil
}

// RequireRoute returns the route middleware.
func RequireRoute(cfg Config) echo.MiddlewareFunc {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) (err error) {
			req := c.Request()
			if IsPrefetch(req) {
				record(rbac.Route(""), false, OutcomePrefetch)
				return c.NoContent(http.StatusNoContent)
			}
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			route, known := LookupRequestRoute(req.URL.Path)

			var (
				outcome string
				allowed bool
			)
			func() {
				defer func() {
					if r := recover(); r != nil {
						outcome, allowed = OutcomeError, false
						err = cfg.fail(c, route, known, fmt.Errorf("route guard panic: %v", r))
					}
				}()
				outcome, allowed, err = cfg.decide(c, route, known)
			}()
			if !allowed {
				return err
			}
			record(route, known, outcome)
			return next(c)
		}
	}
}

// decide runs AUTH_CHECK and PERMISSION_CHECK. When allowed is false the
// response has been written and err is what the middleware returns.
func (cfg Config) decide(c *echo.Context, route rbac.Route, known bool) (string, bool, error) {
	ctx := c.Request().Context()

	sess, err := cfg.Sessions.Get(ctx)
	if err != nil {
		return OutcomeError, false, cfg.fail(c, route, known, err)
	}
	c.Set(ContextKeySession, sess)

	if known && route.IsPublic() {
		if p := sess.Principal(); p != nil {
			c.Set(ContextKeyPrincipal, p)
		}
		return OutcomePublic, true, nil
	}

	// AUTH_CHECK
	readyCtx, cancel := context.WithTimeout(ctx, cfg.ReadyTimeout)
	err = sess.WaitReady(readyCtx)
	cancel()
	if err != nil {
		return OutcomeError, false, cfg.fail(c, route, known, fmt.Errorf("waiting for session: %w", err))
	}
	principal := sess.Principal()
	if principal == nil {
		if isAPIRequest(c) {
			record(route, known, OutcomeUnauthorized)
			return OutcomeUnauthorized, false, c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		record(route, known, OutcomeRedirectLogin)
		return OutcomeRedirectLogin, false, c.Redirect(http.StatusSeeOther, LoginLocation(c.Request()))
	}
	c.Set(ContextKeyPrincipal, principal)

	// PERMISSION_CHECK
	if !known {
		return OutcomeAllow, true, nil
	}
	check, ok := rbac.PermissionCheck(route)
	if !ok {
		return OutcomeAllow, true, nil
	}
	roles, err := sess.Roles(ctx)
	if err != nil {
		return OutcomeError, false, cfg.fail(c, route, known, err)
	}
	if check(roles) {
		return OutcomeAllow, true, nil
	}

	cfg.Logger.Info("route access denied", "route", string(route), "uid", principal.UID, "roles", roles.Strings())
	if isAPIRequest(c) {
		record(route, known, OutcomeForbidden)
		return OutcomeForbidden, false, c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
	}
	notify.Send(ctx, notify.Error(rbac.AccessDeniedMessage, "Access Denied"))
	record(route, known, OutcomeRedirectDashboard)
	return OutcomeRedirectDashboard, false, c.Redirect(http.StatusSeeOther, string(rbac.RouteDashboard))
}

// fail handles any fault or panic: log, notify, send to /login.
func (cfg Config) fail(c *echo.Context, route rbac.Route, known bool, cause error) error {
	record(route, known, OutcomeError)
	cfg.Logger.Error("route guard failed", "path", c.Request().URL.Path, "error", cause)
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication_error"})
	}
	notify.Send(c.Request().Context(), notify.Error(AuthErrorMessage, AuthErrorTitle))
	return c.Redirect(http.StatusSeeOther, string(rbac.RouteLogin))
}

func record(route rbac.Route, known bool, outcome string) {
	label := "unknown"
	if known {
		label = string(route)
	}
	metrics.RouteGuardDecisionsTotal.WithLabelValues(label, outcome).Inc()
}

// LookupRequestRoute maps a request path (including the /api mirror of a
// page route) onto the registry.
func LookupRequestRoute(path string) (rbac.Route, bool) {
	if rest, ok := strings.CutPrefix(path, "/api"); ok && (rest == "" || strings.HasPrefix(rest, "/")) {
		path = rest
		if path == "" || path == "/" {
			return "", false
		}
	}
	return rbac.LookupRoute(path)
}

// IsPrefetch reports a speculative, non-interactive navigation.
func IsPrefetch(r *http.Request) bool {
	for _, h := range []string{"Sec-Purpose", "Purpose", "X-Purpose", "X-Moz"} {
		v := strings.ToLower(r.Header.Get(h))
		if strings.Contains(v, "prefetch") || strings.Contains(v, "prerender") {
			return true
		}
	}
	return false
}

// LoginLocation is /login carrying the sanitised original URI for GETs.
func LoginLocation(r *http.Request) string {
	location := string(rbac.RouteLogin)
	if r.Method == http.MethodGet {
		if next := SanitizeRedirect(r.URL.RequestURI()); next != "" {
			location += "?" + RedirectParam + "=" + url.QueryEscape(next)
		}
	}
	return location
}

func isAPIRequest(c *echo.Context) bool {
	return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// SanitizeRedirect returns next when it is a safe same-origin path, or "".
// The root and the public auth pages are rejected.
func SanitizeRedirect(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	if strings.ContainsAny(next, "\\\r\n\t") {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, "\\") {
		return ""
	}
	if u.Path == "/" && u.RawQuery == "" {
		return ""
	}
	for _, r := range rbac.PublicRoutes {
		p := string(r)
		if u.Path == p || strings.HasPrefix(u.Path, p+"/") {
			return ""
		}
	}
	return next
}
