package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/http/views"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

// HandleDashboard renders the dashboard page.
func (h *Handlers) HandleDashboard(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	principal := sess.Principal()
	if principal == nil {
		return c.Redirect(http.StatusSeeOther, string(rbac.RouteLogin))
	}

	layout := h.LayoutData(c, sess, "Dashboard")
	nav := sess.Navigator()
	snap := sess.Permissions()

	data := viewmodels.DashboardViewData{
		Layout:   layout,
		Greeting: "Welcome back, " + principal.Name(),
	}
	for _, item := range layout.Menu {
		if item.Href == string(rbac.RouteDashboard) {
			continue
		}
		data.Shortcuts = append(data.Shortcuts, item)
	}
	for _, r := range rbac.Routes {
		if r.IsPublic() {
			continue
		}
		data.Permissions = append(data.Permissions, viewmodels.PermissionItem{
			Label:   r.Label(),
			Allowed: nav.CanAccessRoute(r),
		})
	}
	data.Capabilities = capabilities(snap)
	return h.RenderComponent(c, views.DashboardPage(data))
}

func capabilities(snap rbac.Snapshot) []string {
	var out []string
	if snap.IsAdmin {
		out = append(out, "Administrator")
	}
	if snap.CanManageUsers {
		out = append(out, "Manage users")
	}
	if snap.CanManageSalesAccounts {
		out = append(out, "Manage sales accounts")
	}
	if snap.CanViewSalesAccountDetails {
		out = append(out, "View sales account details")
	}
	if rbac.CanAccessProductCatalog(snap.Roles) {
		out = append(out, "Product catalog")
	}
	if rbac.CanAccessSupportTools(snap.Roles) {
		out = append(out, "Support tools")
	}
	return out
}

func (h *Handlers) HandleProfile(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	principal := sess.Principal()
	if principal == nil {
		return c.Redirect(http.StatusSeeOther, string(rbac.RouteLogin))
	}

	data := viewmodels.ProfileViewData{
		Layout:        h.LayoutData(c, sess, "My Profile"),
		UID:           principal.UID,
		Email:         principal.Email,
		DisplayName:   principal.DisplayName,
		Initials:      views.UserInitials(principal.DisplayName, principal.Email),
		EmailVerified: principal.EmailVerified,
		Roles:         roleBadges(principal.Roles),
	}
	return h.RenderComponent(c, views.ProfilePage(data))
}

// HandleResendVerification sends a new verification email and returns to
// the profile page.
func (h *Handlers) HandleResendVerification(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	ctx := c.Request().Context()

	if err := sess.ResendVerification(ctx); err != nil {
		h.logger().Info("resending verification email failed", "code", identity.Code(err))
		if identity.Code(err) == identity.CodeEmailAlreadyVerified {
			notify.Send(ctx, notify.Info(identity.Message(err), "Email verification"))
		} else {
			notify.Send(ctx, notify.Error(identity.Message(err), "Email verification"))
		}
	} else {
		notify.Send(ctx, notify.Success("Verification email sent. Check your inbox.", "Email verification"))
	}

	return seeOther(c, string(rbac.RouteMyProfile))
}
