package views

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/nexus-console/nexus-console/internal/datetime"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

func FormatInt(v int) string {
	return strconv.Itoa(v)
}

func QueryEscape(v string) string {
	return url.QueryEscape(v)
}

// UsersListURL links to a page of the user listing.
func UsersListURL(page int) string {
	base := string(rbac.RouteUserManagement)
	if page > 1 {
		return base + "?page=" + strconv.Itoa(page)
	}
	return base
}

func UserDetailURL(id string) string {
	return string(rbac.RouteUserManagement) + "/users/" + url.PathEscape(strings.TrimSpace(id))
}

func UserRolesURL(id string) string {
	return UserDetailURL(id) + "/roles"
}

// UserInitials takes the first letters of the first two words of the
// display name, falling back to the first letter of the email.
func UserInitials(displayName, email string) string {
	if words := strings.Fields(displayName); len(words) > 0 {
		var b strings.Builder
		for _, w := range words[:min(2, len(words))] {
			r := []rune(w)
			b.WriteRune(unicode.ToUpper(r[0]))
		}
		return b.String()
	}
	if email = strings.TrimSpace(email); email != "" {
		return strings.ToUpper(string([]rune(email)[:1]))
	}
	return "?"
}

// LastSignInLabel renders a sign-in timestamp relative to now.
func LastSignInLabel(ts any, now time.Time) string {
	if isEmptyTimestamp(ts) {
		return "Never"
	}
	t, ok := datetime.Normalize(ts)
	if !ok {
		return "Unknown"
	}
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case d < 48*time.Hour:
		return "Yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	default:
		return datetime.FormatSortable(t)
	}
}

func isEmptyTimestamp(ts any) bool {
	switch v := ts.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case time.Time:
		return v.IsZero()
	case *time.Time:
		return v == nil || v.IsZero()
	default:
		return false
	}
}

func RoleBadgeClass(role string) string {
	switch rbac.Role(strings.TrimSpace(role)) {
	case rbac.RoleAdmin:
		return "badge bg-red-100 text-red-800"
	case rbac.RoleSupport:
		return "badge bg-blue-100 text-blue-800"
	case rbac.RoleProductOwner:
		return "badge bg-purple-100 text-purple-800"
	case rbac.RoleSalesAdmin:
		return "badge bg-amber-100 text-amber-800"
	case rbac.RoleSalesRep:
		return "badge bg-green-100 text-green-800"
	default:
		return "badge bg-gray-100 text-gray-800"
	}
}

func StatusBadgeClass(disabled bool) string {
	if disabled {
		return "badge bg-amber-100 text-amber-800"
	}
	return "badge bg-emerald-100 text-emerald-800"
}

func StatusLabel(disabled bool) string {
	if disabled {
		return "Disabled"
	}
	return "Active"
}

func IsAlertDestructive(class string) bool {
	class = strings.ToLower(strings.TrimSpace(class))
	if class == "" {
		return false
	}
	return strings.Contains(class, "error") || strings.Contains(class, "destructive")
}

func AlertRole(destructive bool) string {
	if destructive {
		return "alert"
	}
	return "status"
}

func AriaCurrent(active bool) string {
	if active {
		return "page"
	}
	return ""
}

func orDash(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "—"
	}
	return v
}
