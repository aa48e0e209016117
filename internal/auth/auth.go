// Package auth describes the signed-in operator as seen by the console.
package auth

import (
	"errors"
	"strings"

	"github.com/nexus-console/nexus-console/internal/rbac"
)

const (
	MethodPassword = "password"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal is materialised from verified ID-token claims on every auth
// state change. It is never persisted; a nil *Principal means signed out.
type Principal struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	Disabled      bool
	Roles         rbac.RoleSet
	Claims        map[string]any
	Method        string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && rbac.IsAdmin(p.Roles)
}

// Name returns the display name, falling back to the email address.
func (p *Principal) Name() string {
	if p == nil {
		return ""
	}
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return p.Email
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
