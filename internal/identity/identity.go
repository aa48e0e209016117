// Package identity defines the contract the console needs from an external
// identity provider: email/password sign-in, token refresh, ID-token
// verification and the out-of-band email flows.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

// User is the verified view of an ID token.
type User struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	Disabled      bool
	Claims        map[string]any
}

// Principal materialises the console principal, resolving roles from the
// token claims.
func (u *User) Principal(method string, logger *slog.Logger) *auth.Principal {
	if u == nil {
		return nil
	}
	return &auth.Principal{
		UID:           u.UID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		Disabled:      u.Disabled,
		Roles:         rbac.ResolveRoles(u.Claims, logger),
		Claims:        u.Claims,
		Method:        method,
	}
}

// Credentials are the tokens returned by a successful sign-in or refresh.
type Credentials struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the ID token expires within leeway of now.
func (c *Credentials) Expired(now time.Time, leeway time.Duration) bool {
	if c == nil || strings.TrimSpace(c.IDToken) == "" {
		return true
	}
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(c.Expiry)
}

// Provider is implemented by the Firebase REST client and the development
// provider.
type Provider interface {
	Name() string
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
	Verify(ctx context.Context, idToken string) (*User, error)
	SendPasswordReset(ctx context.Context, email string) error
	SendVerification(ctx context.Context, idToken string) error
}
