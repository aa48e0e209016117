package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

func TestParseRoleArgs(t *testing.T) {
	t.Parallel()

	got, err := parseRoleArgs([]string{"sales-rep,admin", " support "})
	if err != nil {
		t.Fatalf("parseRoleArgs() error = %v", err)
	}
	if !got.Equal(rbac.NewRoleSet(rbac.RoleAdmin, rbac.RoleSupport, rbac.RoleSalesRep)) {
		t.Fatalf("parseRoleArgs() = %v", got.Strings())
	}

	empty, err := parseRoleArgs(nil)
	if err != nil || empty.Len() != 0 {
		t.Fatalf("parseRoleArgs(nil) = %v, %v", empty.Strings(), err)
	}

	_, err = parseRoleArgs([]string{"admin", "root"})
	if err == nil || !strings.Contains(err.Error(), `"root"`) {
		t.Fatalf("parseRoleArgs(root) error = %v", err)
	}
	if code := exitCodeForError(err, io.Discard); code != exitUsage {
		t.Fatalf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestReadPasswordLine(t *testing.T) {
	t.Parallel()

	got, err := readPasswordLine(strings.NewReader("s3cret\r\nignored\n"))
	if err != nil || got != "s3cret" {
		t.Fatalf("readPasswordLine() = %q, %v", got, err)
	}
	if _, err := readPasswordLine(strings.NewReader("")); err == nil {
		t.Fatal("empty input accepted")
	}
	if _, err := readPasswordLine(strings.NewReader("\n")); err == nil {
		t.Fatal("blank line accepted")
	}
}

func TestStderrNotifierCountsErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	n := &stderrNotifier{w: &out}
	n.Notify(context.Background(), notify.Success("", "Roles saved"))
	if n.reportedError() {
		t.Fatal("success counted as error")
	}
	n.Notify(context.Background(), notify.Error("User not found", ""))
	if !n.reportedError() {
		t.Fatal("error toast not counted")
	}
	if got := out.String(); got != "Roles saved\nError: User not found\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestWriteUserTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := writeUserTable(&out, &nexusapi.PagedResponse[nexusapi.User]{
		Data: []nexusapi.User{
			{ID: "u-1", Email: "ada@example.com", DisplayName: "Ada Lovelace", Roles: []string{"admin"}},
			{ID: "u-2", Email: "bob@example.com", Disabled: true},
		},
		PageNumber: 1,
		TotalPages: 1,
		TotalCount: 2,
	})
	if err != nil {
		t.Fatalf("writeUserTable() error = %v", err)
	}
	body := out.String()
	for _, want := range []string{"ID", "ada@example.com", "Ada Lovelace", "disabled", "page 1 of 1 (2 users)"} {
		if !strings.Contains(body, want) {
			t.Fatalf("output missing %q:\n%s", want, body)
		}
	}
}

// userBackend serves a single user u-1 and records bearer tokens.
type userBackend struct {
	mu     sync.Mutex
	roles  []string
	bearer []string
}

func (b *userBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bearer = append(b.bearer, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "users" || parts[1] != "u-1" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(nexusapi.APIError{Message: "User not found", StatusCode: http.StatusNotFound})
		return
	}
	if len(parts) == 4 && parts[2] == "roles" {
		switch r.Method {
		case http.MethodPost:
			b.roles = append(b.roles, parts[3])
		case http.MethodDelete:
			b.roles = slices.DeleteFunc(b.roles, func(role string) bool { return role == parts[3] })
		}
	}
	_ = json.NewEncoder(w).Encode(nexusapi.User{ID: "u-1", Email: "ada@example.com", Roles: slices.Clone(b.roles)})
}

func setupUsersCommand(t *testing.T, backend http.Handler) {
	t.Helper()

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	usersFile := filepath.Join(t.TempDir(), "users.yaml")
	yaml := fmt.Sprintf("users:\n  - email: admin@example.com\n    emailVerified: true\n    passwordHash: %q\n    roles: [admin]\n", hash)
	if err := os.WriteFile(usersFile, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	t.Setenv("IDENTITY_PROVIDER", "dev")
	t.Setenv("DEV_USERS_FILE", usersFile)
	t.Setenv("DEV_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("NEXUS_API_URL", srv.URL)
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("SESSION_STORE", "memory")

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		usersEmail = ""
		usersPasswordStdin = false
		resetCommandExecutionContext()
	})
}

func runUsersCommand(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader("s3cret\n"))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestUsersSetRolesKeepsUnknownRoles(t *testing.T) {
	backend := &userBackend{roles: []string{"admin", "legacy"}}
	setupUsersCommand(t, backend)

	stdout, stderr, err := runUsersCommand("users", "set-roles", "u-1", "support", "--email", "admin@example.com", "--password-stdin")
	if err != nil {
		t.Fatalf("set-roles error = %v (stderr %q)", err, stderr)
	}

	backend.mu.Lock()
	roles := slices.Clone(backend.roles)
	bearer := slices.Clone(backend.bearer)
	backend.mu.Unlock()

	if want := []string{"legacy", "support"}; !slices.Equal(roles, want) {
		t.Fatalf("backend roles = %v, want %v", roles, want)
	}
	for _, h := range bearer {
		if !strings.HasPrefix(h, "Bearer ") || len(h) <= len("Bearer ") {
			t.Fatalf("request without bearer token: %q", h)
		}
	}
	if !strings.Contains(stdout, "other roles:") || !strings.Contains(stdout, "legacy") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestUsersGetUnknownUserReportsOnce(t *testing.T) {
	setupUsersCommand(t, &userBackend{})

	_, stderr, err := runUsersCommand("users", "get", "nobody", "--email", "admin@example.com", "--password-stdin")
	if err == nil {
		t.Fatal("get nobody succeeded")
	}
	var out bytes.Buffer
	if code := exitCodeForError(err, &out); code != exitBackendFailed {
		t.Fatalf("exit code = %d, want %d", code, exitBackendFailed)
	}
	if out.Len() != 0 {
		t.Fatalf("error reported twice: %q", out.String())
	}
	if strings.Count(stderr, "User not found") != 1 {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestUsersWrongPasswordIsAuthFailure(t *testing.T) {
	setupUsersCommand(t, &userBackend{})

	rootCmd.SetIn(strings.NewReader("wrong\n"))
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"users", "list", "--email", "admin@example.com", "--password-stdin"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("sign-in with a wrong password succeeded")
	}
	if code := exitCodeForError(err, io.Discard); code != exitAuthFailure {
		t.Fatalf("exit code = %d, want %d", code, exitAuthFailure)
	}
}
