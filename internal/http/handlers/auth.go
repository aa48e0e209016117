package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/http/authn"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/http/views"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"golang.org/x/net/publicsuffix"
)

const (
	invalidLoginMessage   = "Invalid email or password."
	invalidEmailMessage   = "Please enter a valid email address."
	domainNotAllowedLogin = "Sign-in is restricted to approved email domains."
)

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type resetPasswordForm struct {
	Email string `form:"email" validate:"required,email"`
}

func (h *Handlers) providerUnavailable() bool {
	if h.Provider == nil {
		return false
	}
	_, ok := h.Provider.(identity.Unavailable)
	return ok
}

func (h *Handlers) HandleLoginGet(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}

	redirect := authn.SanitizeRedirect(c.QueryParam(authn.RedirectParam))
	if sess.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, h.afterLogin(sess.Navigator(), redirect))
	}

	data := viewmodels.LoginViewData{
		CSRFToken:   csrfToken(c),
		Redirect:    redirect,
		Unavailable: h.providerUnavailable(),
		Toast:       takeToast(c),
	}
	return h.RenderComponent(c, views.LoginPage(data))
}

func (h *Handlers) HandleLoginPost(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	ctx := c.Request().Context()

	form := loginForm{
		Email:    auth.NormalizeEmail(c.FormValue("email")),
		Password: c.FormValue("password"),
	}
	redirect := authn.SanitizeRedirect(c.FormValue(authn.RedirectParam))
	data := viewmodels.LoginViewData{
		CSRFToken:   csrfToken(c),
		Email:       form.Email,
		Redirect:    redirect,
		Unavailable: h.providerUnavailable(),
	}

	if err := validateForm(form); err != nil {
		data.ErrorMessage = invalidLoginMessage
		if fieldFailed(err, "Email") {
			data.ErrorMessage = invalidEmailMessage
		}
		return h.RenderComponent(c, views.LoginPage(data))
	}
	if !emailDomainAllowed(form.Email, h.Cfg.AllowedEmailDomains) {
		h.logger().Info("sign-in refused for email domain", "domain", emailDomain(form.Email))
		data.ErrorMessage = domainNotAllowedLogin
		return h.RenderComponent(c, views.LoginPage(data))
	}

	if h.Sessions != nil {
		if err := h.Sessions.RenewToken(ctx); err != nil {
			return h.RenderError(c, err)
		}
	}
	principal, err := sess.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		data.ErrorMessage = identity.Message(err)
		return h.RenderComponent(c, views.LoginPage(data))
	}

	notify.Send(ctx, notify.Success("Signed in as "+principal.Email, "Welcome"))
	return seeOther(c, h.afterLogin(sess.Navigator(), redirect))
}

// afterLogin is the sanitised redirect target, else the first route the
// operator may open.
func (h *Handlers) afterLogin(nav rbac.Navigator, redirect string) string {
	if redirect != "" {
		return redirect
	}
	return string(nav.DefaultRoute())
}

func (h *Handlers) HandleLogoutPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errNoSession
	}
	ctx := c.Request().Context()

	if sess, ok := authn.SessionFromContext(c); ok {
		if err := sess.SignOut(ctx); err != nil {
			h.logger().Warn("clearing persisted credentials failed", "error", err)
		}
	}
	if h.Registry != nil {
		h.Registry.Forget(ctx)
	}
	if err := h.Sessions.Destroy(ctx); err != nil {
		return err
	}
	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    "Signed out",
	})

	return seeOther(c, string(rbac.RouteLogin))
}

func (h *Handlers) HandleResetPasswordGet(c *echo.Context) error {
	data := viewmodels.ResetPasswordViewData{
		CSRFToken: csrfToken(c),
		Email:     auth.NormalizeEmail(c.QueryParam("email")),
		Toast:     takeToast(c),
	}
	return h.RenderComponent(c, views.ResetPasswordPage(data))
}

func (h *Handlers) HandleResetPasswordPost(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}

	form := resetPasswordForm{Email: auth.NormalizeEmail(c.FormValue("email"))}
	data := viewmodels.ResetPasswordViewData{
		CSRFToken: csrfToken(c),
		Email:     form.Email,
	}
	if err := validateForm(form); err != nil {
		data.ErrorMessage = invalidEmailMessage
		return h.RenderComponent(c, views.ResetPasswordPage(data))
	}

	err = sess.ResetPassword(c.Request().Context(), form.Email)
	switch {
	case err == nil, identity.Code(err) == identity.CodeUserNotFound:
		// Unknown addresses look the same as known ones.
		data.Sent = true
	default:
		h.logger().Info("password reset failed", "code", identity.Code(err))
		data.ErrorMessage = identity.Message(err)
	}
	return h.RenderComponent(c, views.ResetPasswordPage(data))
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// emailDomainAllowed compares registrable domains, so sub.example.co.uk is
// allowed by example.co.uk. An empty allowlist allows everything.
func emailDomainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	domain := emailDomain(email)
	if domain == "" {
		return false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return false
	}
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if candidate == domain {
			return true
		}
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(candidate); err == nil && etld1 == candidate && etld1 == registrable {
			return true
		}
	}
	return false
}
