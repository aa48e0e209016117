package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
)

type sessionResponse struct {
	Authenticated          bool            `json:"authenticated"`
	UID                    string          `json:"uid,omitempty"`
	Email                  string          `json:"email,omitempty"`
	DisplayName            string          `json:"displayName,omitempty"`
	EmailVerified          bool            `json:"emailVerified"`
	Roles                  []string        `json:"roles"`
	Permissions            map[string]bool `json:"permissions"`
	IsAdmin                bool            `json:"isAdmin"`
	CanManageUsers         bool            `json:"canManageUsers"`
	CanManageSalesAccounts bool            `json:"canManageSalesAccounts"`
	DefaultRoute           string          `json:"defaultRoute"`
}

type apiErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// HandleAPISession describes the signed-in operator and their navigation
// permissions.
func (h *Handlers) HandleAPISession(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	snap := sess.Permissions()
	resp := sessionResponse{
		Roles:                  snap.Roles.Strings(),
		Permissions:            make(map[string]bool, len(snap.Permissions)),
		IsAdmin:                snap.IsAdmin,
		CanManageUsers:         snap.CanManageUsers,
		CanManageSalesAccounts: snap.CanManageSalesAccounts,
		DefaultRoute:           string(sess.Navigator().DefaultRoute()),
	}
	for k, v := range snap.Permissions {
		resp.Permissions[string(k)] = v
	}
	if p := sess.Principal(); p != nil {
		resp.Authenticated = true
		resp.UID = p.UID
		resp.Email = p.Email
		resp.DisplayName = p.DisplayName
		resp.EmailVerified = p.EmailVerified
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleAPIUsers proxies one page of the Nexus user listing.
func (h *Handlers) HandleAPIUsers(c *echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	resp, err := h.api(sess).ListUsers(c.Request().Context(), nexusapi.ListOptions{
		Page:     parsePageParam(c),
		PageSize: usersPerPage,
	})
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// apiError maps a fault onto a JSON error. Backend statuses pass through;
// everything else is a 502.
func apiError(c *echo.Context, err error) error {
	status := http.StatusBadGateway
	body := apiErrorResponse{Error: fault.UserMessage(err)}
	var fe *fault.Error
	if errors.As(err, &fe) {
		body.Fields = fe.Fields
		switch {
		case fe.Kind == fault.KindConfiguration:
			status = http.StatusServiceUnavailable
		case fe.Kind == fault.KindAuthentication:
			status = http.StatusUnauthorized
		case fe.Status >= 400 && fe.Status < 600:
			status = fe.Status
		}
	}
	return c.JSON(status, body)
}
