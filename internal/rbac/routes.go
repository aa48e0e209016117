package rbac

import (
	"fmt"
	"strings"
)

// Route is a path from the console's fixed route registry.
type Route string

const (
	RouteLogin          Route = "/login"
	RouteResetPassword  Route = "/reset-password"
	RouteDashboard      Route = "/"
	RouteMyProfile      Route = "/my-profile"
	RouteUserManagement Route = "/user-management"
)

// Routes is the registry in declaration order.
var Routes = []Route{
	RouteLogin,
	RouteResetPassword,
	RouteDashboard,
	RouteMyProfile,
	RouteUserManagement,
}

// PublicRoutes need no authentication.
var PublicRoutes = []Route{
	RouteLogin,
	RouteResetPassword,
}

// PermissionKey names a navigation capability.
type PermissionKey string

const (
	PermissionDashboard      PermissionKey = "dashboard"
	PermissionMyProfile      PermissionKey = "myProfile"
	PermissionUserManagement PermissionKey = "userManagement"
)

// PermissionKeys lists every key in declaration order.
var PermissionKeys = []PermissionKey{
	PermissionDashboard,
	PermissionMyProfile,
	PermissionUserManagement,
}

// defaultRoutePriority is the order DefaultRoute walks.
var defaultRoutePriority = []Route{
	RouteDashboard,
	RouteUserManagement,
}

type routeSpec struct {
	label  string
	public bool
	key    PermissionKey
}

var routeTable = map[Route]routeSpec{
	RouteLogin:          {label: "Login", public: true},
	RouteResetPassword:  {label: "Reset Password", public: true},
	RouteDashboard:      {label: "Dashboard", key: PermissionDashboard},
	RouteMyProfile:      {label: "My Profile", key: PermissionMyProfile},
	RouteUserManagement: {label: "User Management", key: PermissionUserManagement},
}

// keyGroups maps each key to its required group; nil means authentication
// alone suffices.
var keyGroups = map[PermissionKey]*Group{
	PermissionDashboard:      nil,
	PermissionMyProfile:      nil,
	PermissionUserManagement: &GroupAdmins,
}

func init() {
	if err := Validate(); err != nil {
		panic(err)
	}
}

// Validate checks that the route and permission tables are exhaustive.
func Validate() error {
	seen := make(map[Route]struct{}, len(Routes))
	for _, r := range Routes {
		if _, dup := seen[r]; dup {
			return fmt.Errorf("rbac: route %q registered twice", r)
		}
		seen[r] = struct{}{}
		spec, ok := routeTable[r]
		if !ok {
			return fmt.Errorf("rbac: route %q has no permission mapping", r)
		}
		if spec.public {
			if spec.key != "" {
				return fmt.Errorf("rbac: public route %q must not carry a permission key", r)
			}
			continue
		}
		if spec.key == "" {
			return fmt.Errorf("rbac: route %q is neither public nor mapped to a permission key", r)
		}
		if _, ok := keyGroups[spec.key]; !ok {
			return fmt.Errorf("rbac: route %q maps to unknown permission key %q", r, spec.key)
		}
	}
	if len(routeTable) != len(Routes) {
		return fmt.Errorf("rbac: route table has %d entries for %d registered routes", len(routeTable), len(Routes))
	}
	for _, k := range PermissionKeys {
		if _, ok := keyGroups[k]; !ok {
			return fmt.Errorf("rbac: permission key %q has no group mapping", k)
		}
	}
	if len(keyGroups) != len(PermissionKeys) {
		return fmt.Errorf("rbac: group table has %d entries for %d permission keys", len(keyGroups), len(PermissionKeys))
	}
	for _, r := range PublicRoutes {
		if !routeTable[r].public {
			return fmt.Errorf("rbac: route %q listed as public but mapped to a key", r)
		}
	}
	return nil
}

// IsPublic reports whether r needs no authentication.
func (r Route) IsPublic() bool {
	return routeTable[r].public
}

// PermissionKey returns the key gating r; ok is false for public routes.
func (r Route) PermissionKey() (PermissionKey, bool) {
	spec := routeTable[r]
	if spec.public || spec.key == "" {
		return "", false
	}
	return spec.key, true
}

// Label returns the display label for r, or the path itself.
func (r Route) Label() string {
	if spec, ok := routeTable[r]; ok && spec.label != "" {
		return spec.label
	}
	return string(r)
}

func (r Route) String() string {
	return string(r)
}

// RequiredGroup returns the group gating k; nil means authenticated-only.
func (k PermissionKey) RequiredGroup() *Group {
	return keyGroups[k]
}

// RequiredGroupFor returns the group gating a route; nil for public and
// authenticated-only routes.
func RequiredGroupFor(r Route) *Group {
	key, ok := r.PermissionKey()
	if !ok {
		return nil
	}
	return key.RequiredGroup()
}

// LookupRoute maps a request path onto the registry route whose path is the
// longest segment prefix of it.
func LookupRoute(path string) (Route, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	var (
		best  Route
		found bool
	)
	for _, r := range Routes {
		p := string(r)
		match := path == p
		if !match && p != "/" {
			match = strings.HasPrefix(path, p+"/")
		}
		if match && len(p) > len(best) {
			best, found = r, true
		}
	}
	return best, found
}

// Check is a route permission predicate over a principal's roles.
type Check func(RoleSet) bool

// PermissionCheck is the route middleware's dispatch table as a total
// function over the registry. ok is false when the route declares no
// restriction beyond authentication.
func PermissionCheck(r Route) (Check, bool) {
	switch r {
	case RouteMyProfile:
		return CanAccessMyProfile, true
	case RouteUserManagement:
		return CanAccessUsers, true
	case RouteDashboard, RouteLogin, RouteResetPassword:
		return nil, false
	default:
		return nil, false
	}
}
