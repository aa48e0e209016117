package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/nexus-console/nexus-console/internal/fault"
)

func TestEmailDomainAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   string
		allowed []string
		want    bool
	}{
		{name: "no allowlist", email: "a@anything.io", want: true},
		{name: "exact", email: "a@example.com", allowed: []string{"example.com"}, want: true},
		{name: "subdomain of registrable", email: "a@eu.example.co.uk", allowed: []string{"example.co.uk"}, want: true},
		{name: "other domain", email: "a@evil.com", allowed: []string{"example.com"}, want: false},
		{name: "lookalike suffix", email: "a@notexample.com", allowed: []string{"example.com"}, want: false},
		{name: "public suffix entry ignored", email: "a@other.co.uk", allowed: []string{"co.uk"}, want: false},
		{name: "exact subdomain entry", email: "a@corp.example.com", allowed: []string{"corp.example.com"}, want: true},
		{name: "missing domain", email: "nobody", allowed: []string{"example.com"}, want: false},
	}
	for _, tc := range tests {
		if got := emailDomainAllowed(tc.email, tc.allowed); got != tc.want {
			t.Fatalf("%s: emailDomainAllowed(%q) = %v, want %v", tc.name, tc.email, got, tc.want)
		}
	}
}

func TestLoginFormValidation(t *testing.T) {
	t.Parallel()

	err := validateForm(loginForm{Email: "not-an-email", Password: "x"})
	if err == nil || !fieldFailed(err, "Email") {
		t.Fatalf("validateForm(bad email) = %v", err)
	}
	err = validateForm(loginForm{Email: "a@example.com"})
	if err == nil || fieldFailed(err, "Email") || !fieldFailed(err, "Password") {
		t.Fatalf("validateForm(no password) = %v", err)
	}
	if err := validateForm(loginForm{Email: "a@example.com", Password: "x"}); err != nil {
		t.Fatalf("validateForm(valid) = %v", err)
	}
}

func TestRolesFormValidation(t *testing.T) {
	t.Parallel()

	if err := validateForm(rolesForm{Roles: []string{"admin", "sales-rep"}}); err != nil {
		t.Fatalf("known roles rejected: %v", err)
	}
	if err := validateForm(rolesForm{}); err != nil {
		t.Fatalf("empty role set rejected: %v", err)
	}
	if err := validateForm(rolesForm{Roles: []string{"admin", "root"}}); err == nil {
		t.Fatal("unknown role accepted")
	}
	if got := trimAll([]string{" admin ", "", "  "}); len(got) != 1 || got[0] != "admin" {
		t.Fatalf("trimAll() = %v", got)
	}
}

func TestAPIErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "backend status", err: fault.Transport(http.StatusNotFound, "User not found", nil), want: http.StatusNotFound},
		{name: "network", err: fault.Transport(0, "Network error", nil), want: http.StatusBadGateway},
		{name: "configuration", err: fault.Configuration("API base URL is not configured"), want: http.StatusServiceUnavailable},
		{name: "authentication", err: fault.Authentication("auth/not-authenticated", "User is not authenticated", nil), want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		c, rec := newTestContext(http.MethodGet, "http://example.com/api/user-management/users")
		if err := apiError(c, tc.err); err != nil {
			t.Fatalf("%s: apiError() = %v", tc.name, err)
		}
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
		var body apiErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
			t.Fatalf("%s: body = %q", tc.name, rec.Body.String())
		}
	}
}

func TestPageBounds(t *testing.T) {
	t.Parallel()

	if pages, prev, next := pageBounds(45, 2, 20); pages != 3 || !prev || !next {
		t.Fatalf("pageBounds(45, 2) = %d %v %v", pages, prev, next)
	}
	if pages, prev, next := pageBounds(0, 1, 20); pages != 1 || prev || next {
		t.Fatalf("pageBounds(0, 1) = %d %v %v", pages, prev, next)
	}
}
