package auth

import (
	"errors"
	"testing"

	"github.com/nexus-console/nexus-console/internal/rbac"
)

func TestPrincipalName(t *testing.T) {
	t.Parallel()

	var nilPrincipal *Principal
	if nilPrincipal.Name() != "" || nilPrincipal.IsAdmin() {
		t.Fatal("nil principal must be anonymous")
	}

	p := &Principal{Email: "ops@example.com", Roles: rbac.NewRoleSet(rbac.RoleAdmin)}
	if got := p.Name(); got != "ops@example.com" {
		t.Fatalf("Name() = %q", got)
	}
	if !p.IsAdmin() {
		t.Fatal("IsAdmin() = false")
	}
	p.DisplayName = " Jane Doe "
	if got := p.Name(); got != "Jane Doe" {
		t.Fatalf("Name() = %q", got)
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := VerifyPassword("correct horse", hash); err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if err := VerifyPassword("wrong", hash); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("VerifyPassword(wrong) error = %v", err)
	}
	if err := VerifyPassword("x", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("VerifyPassword(empty hash) error = %v", err)
	}
	if err := VerifyPassword("x", "not-a-hash"); err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("VerifyPassword(malformed) error = %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := NormalizeEmail("  Ops@Example.COM "); got != "ops@example.com" {
		t.Fatalf("NormalizeEmail() = %q", got)
	}
}
