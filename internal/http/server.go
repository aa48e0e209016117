// Package httpapp assembles the console's echo server: middleware stack,
// route table and error handling.
package httpapp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/nexus-console/nexus-console/internal/config"
	"github.com/nexus-console/nexus-console/internal/http/authn"
	"github.com/nexus-console/nexus-console/internal/http/handlers"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/session"
	"github.com/unrolled/secure"
)

const (
	sessionCookieName = "nexus_session"
	csrfCookieName    = "nexus_csrf"
)

// Deps are the collaborators the server wires into its handlers.
type Deps struct {
	Sessions *scs.SessionManager
	Registry *session.Registry
	Provider identity.Provider
	API      *nexusapi.Client
	Logger   *slog.Logger
}

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewSessionManager returns the scs manager for the browser session cookie.
// A nil store keeps sessions in memory.
func NewSessionManager(cfg config.Config, store scs.Store) *scs.SessionManager {
	sm := scs.New()
	if store != nil {
		sm.Store = store
	}
	sm.Lifetime = cfg.SessionLifetime
	sm.Cookie.Name = sessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.AuthCookieSecure
	return sm
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(cfg config.Config, deps Deps) (*EchoServer, error) {
	if deps.Sessions == nil {
		return nil, errors.New("httpapp: session manager is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("httpapp: session registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.API == nil {
		deps.API = nexusapi.New(cfg.NexusAPIURL, nil, cfg.NexusAPITimeout, deps.Logger)
	}

	h := &handlers.Handlers{
		Cfg:      cfg,
		Sessions: deps.Sessions,
		Registry: deps.Registry,
		Provider: deps.Provider,
		API:      deps.API,
		Logger:   deps.Logger,
	}
	e := echo.New()
	e.Logger = deps.Logger
	es := &EchoServer{h: h, e: e}
	e.HTTPErrorHandler = es.httpErrorHandler

	es.registerMiddleware(cfg, deps)
	es.registerRoutes(cfg)
	return es, nil
}

func (es *EchoServer) registerMiddleware(cfg config.Config, deps Deps) {
	secureHeaders := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'",
		STSSeconds:            31536000,
		IsDevelopment:         !cfg.AuthCookieSecure,
	})

	es.e.Use(middleware.Recover())
	es.e.Use(requestID())
	es.e.Use(echo.WrapMiddleware(secureHeaders.Handler))
	es.e.Use(echo.WrapMiddleware(deps.Sessions.LoadAndSave))
	es.e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        isUnguarded,
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.AuthCookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	es.e.Use(handlers.ToastNotifier())
	es.e.Use(authn.RequireRoute(authn.Config{
		Sessions: deps.Registry,
		Skipper:  isUnguarded,
		Logger:   deps.Logger.With("component", "route_guard"),
	}))
}

func (es *EchoServer) registerRoutes(cfg config.Config) {
	h := es.h
	throttle := loginThrottle(cfg.LoginRateLimit)

	es.e.GET("/healthz", h.HandleHealthz)

	es.e.GET("/login", h.HandleLoginGet)
	es.e.POST("/login", h.HandleLoginPost, throttle...)
	es.e.GET("/reset-password", h.HandleResetPasswordGet)
	es.e.POST("/reset-password", h.HandleResetPasswordPost, throttle...)
	es.e.POST("/logout", h.HandleLogoutPost)

	es.e.GET("/", h.HandleDashboard)
	es.e.GET("/my-profile", h.HandleProfile)
	es.e.POST("/my-profile/verify-email", h.HandleResendVerification)
	es.e.GET("/user-management", h.HandleUsers)
	es.e.GET("/user-management/users/:id", h.HandleUserDetail)
	es.e.POST("/user-management/users/:id/roles", h.HandleUserRolesPost)

	es.e.GET("/api/session", h.HandleAPISession)
	es.e.GET("/api/user-management/users", h.HandleAPIUsers)
}

// isUnguarded is true for requests that bypass CSRF and the route guard.
func isUnguarded(c *echo.Context) bool {
	return c.Request().URL.Path == "/healthz"
}

func loginThrottle(perMinute int) []echo.MiddlewareFunc {
	if perMinute <= 0 {
		return nil
	}
	return []echo.MiddlewareFunc{echo.WrapMiddleware(httprate.LimitByIP(perMinute, time.Minute))}
}

// requestID tags each request with an X-Request-ID, keeping a well-formed
// inbound one.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Set(handlers.ContextKeyRequestID, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if err == nil {
		return
	}
	status := httpStatusFromError(err)
	switch {
	case status >= http.StatusInternalServerError:
		_ = es.h.RenderError(c, err)
	case status == http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	case strings.HasPrefix(c.Request().URL.Path, "/api/"):
		_ = c.JSON(status, map[string]string{"error": http.StatusText(status)})
	default:
		_ = c.String(status, http.StatusText(status))
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code < 600 {
			return code
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code >= 400 && he.Code < 600 {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Handler exposes the router for an http.Server.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}
