package nexusapi

import (
	"github.com/nexus-console/nexus-console/internal/rbac"
)

// User is a Nexus backend user record. Roles are kept as sent by the
// backend; use RoleSet for the validated view.
type User struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"displayName"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"emailVerified"`
	Disabled      bool     `json:"disabled"`
	Roles         []string `json:"roles"`
	PhoneNumber   string   `json:"phoneNumber,omitempty"`
	TenantID      string   `json:"tenantId,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	LastSignInAt  string   `json:"lastSignInAt,omitempty"`
}

// RoleSet returns the user's roles that belong to the closed set, plus the
// raw values that do not.
func (u User) RoleSet() (rbac.RoleSet, []string) {
	return rbac.ParseRoles(u.Roles)
}

// PagedResponse is the backend's pagination envelope.
type PagedResponse[T any] struct {
	Data            []T  `json:"data"`
	PageNumber      int  `json:"pageNumber"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// APIError is the backend's structured error body.
type APIError struct {
	Message    string              `json:"message"`
	StatusCode int                 `json:"statusCode"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

// ListOptions pages the user listing. Zero values leave the backend
// defaults in place.
type ListOptions struct {
	Page     int
	PageSize int
}
