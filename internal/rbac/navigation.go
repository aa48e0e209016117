package rbac

import "github.com/nexus-console/nexus-console/internal/notify"

// AccessDeniedMessage is shown whenever navigation to a route is refused.
const AccessDeniedMessage = "You do not have permission to access this page."

// Navigator answers route questions for one snapshot. Its checks drive
// menus and convenience redirects only; the route middleware is the
// enforcement point.
type Navigator struct {
	snap Snapshot
}

// NewNavigator returns a navigator over snap.
func NewNavigator(snap Snapshot) Navigator {
	return Navigator{snap: snap}
}

// CanAccessRoute is true for routes without a permission key, otherwise the
// snapshot value.
func (n Navigator) CanAccessRoute(r Route) bool {
	key, ok := r.PermissionKey()
	if !ok {
		return true
	}
	return n.snap.Allowed(key)
}

// AvailableRoutes filters the registry, keeping declaration order.
func (n Navigator) AvailableRoutes() []Route {
	out := make([]Route, 0, len(Routes))
	for _, r := range Routes {
		if n.CanAccessRoute(r) {
			out = append(out, r)
		}
	}
	return out
}

// DefaultRoute returns the first available route in priority order. When
// none is available it still returns the dashboard.
func (n Navigator) DefaultRoute() Route {
	available := make(map[Route]struct{})
	for _, r := range n.AvailableRoutes() {
		available[r] = struct{}{}
	}
	for _, r := range defaultRoutePriority {
		if _, ok := available[r]; ok {
			return r
		}
	}
	return RouteDashboard
}

// NavigationResult is the outcome of NavigateTo. Location is empty when the
// transition was refused; Toast is set in that case.
type NavigationResult struct {
	Location string
	Toast    *notify.Toast
}

// Allowed reports whether the transition may proceed.
func (r NavigationResult) Allowed() bool {
	return r.Location != ""
}

// NavigateTo checks r and returns either the target or an access-denied
// notification.
func (n Navigator) NavigateTo(r Route) NavigationResult {
	if n.CanAccessRoute(r) {
		return NavigationResult{Location: string(r)}
	}
	t := notify.Error(AccessDeniedMessage, "Access Denied")
	return NavigationResult{Toast: &t}
}

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	Label  string
	Route  Route
	Active bool
}

// Menu returns the authenticated menu entries the principal may open.
func (n Navigator) Menu(activePath string) []MenuItem {
	active, _ := LookupRoute(activePath)
	var items []MenuItem
	for _, r := range n.AvailableRoutes() {
		if r.IsPublic() {
			continue
		}
		items = append(items, MenuItem{Label: r.Label(), Route: r, Active: r == active})
	}
	return items
}
