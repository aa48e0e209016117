package nexusapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Auth   string
	Type   string
}

// backend is an in-memory Nexus user service.
type backend struct {
	mu     sync.Mutex
	users  map[string]*User
	calls  []recordedCall
	failOn string
}

func newBackend(users ...User) *backend {
	b := &backend{users: map[string]*User{}}
	for i := range users {
		u := users[i]
		b.users[u.ID] = &u
	}
	return b
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := strings.TrimPrefix(r.URL.EscapedPath(), "/api")
	b.calls = append(b.calls, recordedCall{Method: r.Method, Path: path, Auth: r.Header.Get("Authorization"), Type: r.Header.Get("Content-Type")})

	if b.failOn != "" && b.failOn == r.Method+" "+path {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIError{Message: "role service unavailable", StatusCode: 500})
		return
	}

	var parts []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		unescaped, err := url.PathUnescape(seg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		parts = append(parts, unescaped)
	}
	switch {
	case len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet:
		var data []User
		for _, u := range b.users {
			data = append(data, *u)
		}
		writeJSON(w, http.StatusOK, PagedResponse[User]{Data: data, PageNumber: 1, PageSize: 20, TotalCount: len(data), TotalPages: 1})
	case len(parts) == 2 && parts[0] == "users" && r.Method == http.MethodGet:
		u, ok := b.users[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, APIError{Message: "User not found", StatusCode: 404})
			return
		}
		writeJSON(w, http.StatusOK, u)
	case len(parts) == 4 && parts[0] == "users" && parts[2] == "roles":
		u, ok := b.users[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, APIError{Message: "User not found", StatusCode: 404})
			return
		}
		role := parts[3]
		switch r.Method {
		case http.MethodPost:
			u.Roles = append(u.Roles, role)
		case http.MethodDelete:
			kept := u.Roles[:0]
			for _, existing := range u.Roles {
				if existing != role {
					kept = append(kept, existing)
				}
			}
			u.Roles = kept
		}
		writeJSON(w, http.StatusOK, u)
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) Calls() []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedCall, len(b.calls))
	copy(out, b.calls)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func staticToken(context.Context) (string, error) { return "id-token-1", nil }

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", staticToken, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func withRecorder() (context.Context, *notify.Recorder) {
	rec := &notify.Recorder{}
	return notify.WithNotifier(context.Background(), rec), rec
}

func TestRequestsCarryBearerAndEscapePaths(t *testing.T) {
	t.Parallel()

	b := newBackend(User{ID: "a/b c", Email: "x@example.com", Roles: []string{"support"}})
	c := newClient(t, b)

	u, err := c.GetUser(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", u.Email)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/users/a%2Fb%20c", calls[0].Path)
	assert.Equal(t, "Bearer id-token-1", calls[0].Auth)
	assert.Equal(t, "application/json", calls[0].Type)
}

func TestListUsersDecodesPage(t *testing.T) {
	t.Parallel()

	var gotQuery string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"data":            []map[string]any{{"id": "u1", "email": "a@example.com", "roles": []string{"admin"}}},
			"pageNumber":      2,
			"pageSize":        10,
			"totalCount":      11,
			"totalPages":      2,
			"hasNextPage":     false,
			"hasPreviousPage": true,
		})
	}))

	page, err := c.ListUsers(context.Background(), ListOptions{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "pageNumber=2&pageSize=10", gotQuery)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 11, page.TotalCount)
	assert.True(t, page.HasPreviousPage)
}

func TestMissingBaseURLIsConfigurationFault(t *testing.T) {
	t.Parallel()

	ctx, rec := withRecorder()
	c := New("", staticToken, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.ListUsers(ctx, ListOptions{})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindConfiguration))
	assert.Equal(t, "NEXUS_API_URL environment variable is not configured", fault.UserMessage(err))

	toast, ok := rec.First()
	require.True(t, ok)
	assert.Equal(t, "API Error", toast.Title)
	assert.Equal(t, notify.SeverityError, toast.Severity)
}

func TestStructuredErrorMessageIsSurfacedOnce(t *testing.T) {
	t.Parallel()

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, APIError{
			Message:    "Validation failed",
			StatusCode: 400,
			Errors:     map[string][]string{"role": {"unknown role"}},
		})
	}))

	ctx, rec := withRecorder()
	_, err := c.AddRole(ctx, "u1", rbac.RoleAdmin)
	require.Error(t, err)

	var fe *fault.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fault.KindTransport, fe.Kind)
	assert.Equal(t, http.StatusBadRequest, fe.Status)
	assert.Equal(t, []string{"unknown role"}, fe.Fields["role"])

	toasts := rec.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Validation failed", toasts[0].Message)
}

func TestUnstructuredErrorFallsBackToStatus(t *testing.T) {
	t.Parallel()

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	ctx, rec := withRecorder()
	_, err := c.RemoveRole(ctx, "u1", rbac.RoleSupport)
	require.Error(t, err)
	msg := fault.UserMessage(err)
	assert.Contains(t, msg, "502 Bad Gateway")
	assert.Contains(t, msg, "upstream exploded")

	toast, _ := rec.First()
	assert.Equal(t, msg, toast.Message)
}

func TestTokenFailureIsReported(t *testing.T) {
	t.Parallel()

	b := newBackend()
	c := newClient(t, b).WithToken(func(context.Context) (string, error) {
		return "", fault.Authentication("auth/not-authenticated", "User is not authenticated", nil)
	})

	ctx, rec := withRecorder()
	_, err := c.GetUser(ctx, "u1")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindAuthentication))
	assert.Empty(t, b.Calls(), "no request without a token")

	toast, _ := rec.First()
	assert.Equal(t, "User is not authenticated", toast.Message)
}

func TestSetUserRolesRemovesBeforeAdding(t *testing.T) {
	t.Parallel()

	b := newBackend(User{ID: "u1", Roles: []string{"support", "sales-rep"}})
	c := newClient(t, b)
	ctx, rec := withRecorder()

	u, err := c.SetUserRoles(ctx, "u1", rbac.NewRoleSet(rbac.RoleSupport, rbac.RoleAdmin))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"support", "admin"}, u.Roles)

	var issued []string
	for _, call := range b.Calls() {
		issued = append(issued, call.Method+" "+call.Path)
	}
	assert.Equal(t, []string{
		"GET /users/u1",
		"DELETE /users/u1/roles/sales-rep",
		"POST /users/u1/roles/admin",
	}, issued)
	assert.Empty(t, rec.Toasts())
}

func TestSetUserRolesNoChangeOnlyReads(t *testing.T) {
	t.Parallel()

	b := newBackend(User{ID: "u1", Roles: []string{"admin", "legacy-role"}})
	c := newClient(t, b)

	u, err := c.SetUserRoles(context.Background(), "u1", rbac.NewRoleSet(rbac.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "legacy-role"}, u.Roles, "unknown roles are neither removed nor re-added")
	assert.Len(t, b.Calls(), 1)
}

func TestSetUserRolesPartialFailure(t *testing.T) {
	t.Parallel()

	b := newBackend(User{ID: "u1", Roles: []string{"support"}})
	b.failOn = "POST /users/u1/roles/admin"
	c := newClient(t, b)
	ctx, rec := withRecorder()

	u, err := c.SetUserRoles(ctx, "u1", rbac.NewRoleSet(rbac.RoleAdmin, rbac.RoleProductOwner))
	require.Error(t, err)

	var partial *PartialUpdateError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []Step{{Op: OpRemove, Role: rbac.RoleSupport}}, partial.Applied)
	assert.Equal(t, Step{Op: OpAdd, Role: rbac.RoleAdmin}, partial.Failed)
	assert.Equal(t, []Step{{Op: OpAdd, Role: rbac.RoleProductOwner}}, partial.Pending)
	assert.True(t, fault.Is(err, fault.KindTransport))

	require.NotNil(t, u)
	assert.Empty(t, u.Roles, "returned record reflects the applied removal")

	toasts := rec.Toasts()
	require.Len(t, toasts, 1, "the operator is notified once")
	assert.Equal(t, "role service unavailable", toasts[0].Message)

	calls := b.Calls()
	assert.Len(t, calls, 3, "no call after the failed step")
}

func TestSetUserRolesReadFailure(t *testing.T) {
	t.Parallel()

	b := newBackend()
	c := newClient(t, b)
	ctx, rec := withRecorder()

	u, err := c.SetUserRoles(ctx, "ghost", rbac.NewRoleSet(rbac.RoleAdmin))
	require.Error(t, err)
	assert.Nil(t, u)
	assert.Equal(t, "User not found", fault.UserMessage(err))
	assert.Len(t, rec.Toasts(), 1)
}

func TestPlanRoleChanges(t *testing.T) {
	t.Parallel()

	steps := PlanRoleChanges(
		rbac.NewRoleSet(rbac.RoleSalesRep, rbac.RoleSupport, rbac.RoleSalesAdmin),
		rbac.NewRoleSet(rbac.RoleSupport, rbac.RoleAdmin, rbac.RoleProductOwner),
	)
	assert.Equal(t, []Step{
		{Op: OpRemove, Role: rbac.RoleSalesAdmin},
		{Op: OpRemove, Role: rbac.RoleSalesRep},
		{Op: OpAdd, Role: rbac.RoleAdmin},
		{Op: OpAdd, Role: rbac.RoleProductOwner},
	}, steps)
	assert.Empty(t, PlanRoleChanges(rbac.RoleSet{}, rbac.RoleSet{}))
}
