package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/datetime"
	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/http/viewmodels"
	"github.com/nexus-console/nexus-console/internal/http/views"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

// HandleUsers renders one page of the Nexus user listing.
func (h *Handlers) HandleUsers(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	page := parsePageParam(c)
	data := viewmodels.UserManagementViewData{
		Page: page,
	}

	resp, err := h.api(sess).ListUsers(c.Request().Context(), nexusapi.ListOptions{Page: page, PageSize: usersPerPage})
	if err != nil {
		data.ErrorMessage = fault.UserMessage(err)
	} else {
		for _, u := range resp.Data {
			data.Users = append(data.Users, h.userRow(u))
		}
		data.HasUsers = len(data.Users) > 0
		data.TotalCount = resp.TotalCount
		if resp.PageNumber > 0 {
			data.Page = resp.PageNumber
		}
		data.TotalPages, data.HasPrevious, data.HasNext = pageBounds(resp.TotalCount, data.Page, usersPerPage)
		if resp.TotalPages > 0 {
			data.TotalPages = resp.TotalPages
			data.HasPrevious = resp.HasPreviousPage
			data.HasNext = resp.HasNextPage
		}
	}

	// Layout last so a toast raised by the API call lands on this page.
	data.Layout = h.LayoutData(c, sess, "User Management")
	return h.RenderComponent(c, views.UserManagementPage(data))
}

func (h *Handlers) HandleUserDetail(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		return RenderNotFound(c)
	}

	user, err := h.api(sess).GetUser(c.Request().Context(), userID)
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) && fe.Status == http.StatusNotFound {
			return RenderNotFound(c)
		}
		return c.Redirect(http.StatusSeeOther, string(rbac.RouteUserManagement))
	}

	row := h.userRow(*user)
	held, _ := user.RoleSet()
	data := viewmodels.UserDetailViewData{User: row}
	for _, r := range rbac.AllRoles {
		data.RoleOptions = append(data.RoleOptions, viewmodels.RoleOption{
			Value:   string(r),
			Label:   r.Label(),
			Checked: held.Has(r),
		})
	}
	data.Layout = h.LayoutData(c, sess, row.Email)
	return h.RenderComponent(c, views.UserDetailPage(data))
}

// HandleUserRolesPost reconciles the user's roles to the submitted set.
func (h *Handlers) HandleUserRolesPost(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	ctx := c.Request().Context()
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		return RenderNotFound(c)
	}
	back := views.UserDetailURL(userID)

	if err := c.Request().ParseForm(); err != nil {
		return h.RenderError(c, err)
	}
	form := rolesForm{Roles: trimAll(c.Request().PostForm["roles"])}
	if err := validateForm(form); err != nil {
		notify.Send(ctx, notify.Error("The submitted roles are not recognised.", "Invalid roles"))
		return seeOther(c, back)
	}
	desired, _ := rbac.ParseRoles(form.Roles)

	updated, err := h.api(sess).SetUserRoles(ctx, userID, desired)
	if err != nil {
		var partial *nexusapi.PartialUpdateError
		if errors.As(err, &partial) {
			h.logger().Warn("role update stopped part way",
				"user_id", userID,
				"applied", len(partial.Applied),
				"failed", partial.Failed.String(),
				"pending", len(partial.Pending),
			)
		}
		return seeOther(c, back)
	}

	name := updated.Email
	if name == "" {
		name = userID
	}
	notify.Send(ctx, notify.Success("Roles updated for "+name+".", "Roles saved"))
	return seeOther(c, back)
}

func (h *Handlers) userRow(u nexusapi.User) viewmodels.UserRow {
	roles, unknown := u.RoleSet()
	title := ""
	if u.LastSignInAt != "" {
		title = datetime.FormatISO8601(u.LastSignInAt)
	}
	return viewmodels.UserRow{
		ID:              u.ID,
		DisplayName:     u.DisplayName,
		Email:           u.Email,
		Initials:        views.UserInitials(u.DisplayName, u.Email),
		Roles:           roleBadges(roles),
		UnknownRoles:    unknown,
		EmailVerified:   u.EmailVerified,
		Disabled:        u.Disabled,
		LastSignIn:      views.LastSignInLabel(u.LastSignInAt, h.now()),
		LastSignInTitle: title,
		CreatedAt:       datetime.FormatMonthDayYear(u.CreatedAt),
	}
}
