// Package rbac holds the console's closed role enumeration, the static
// permission matrix and the navigation guard built on top of it.
package rbac

import (
	"unicode"
	"unicode/utf8"
)

// Role is an authorization tag assigned to a principal. Values must match
// the backend's application roles exactly.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleSupport      Role = "support"
	RoleProductOwner Role = "product-owner"
	RoleSalesAdmin   Role = "sales-admin"
	RoleSalesRep     Role = "sales-rep"
)

// AllRoles lists the closed set in canonical order.
var AllRoles = []Role{
	RoleAdmin,
	RoleSupport,
	RoleProductOwner,
	RoleSalesAdmin,
	RoleSalesRep,
}

var roleLabels = map[Role]string{
	RoleAdmin:        "Admin",
	RoleSupport:      "Support",
	RoleProductOwner: "Product Owner",
	RoleSalesAdmin:   "Sales Admin",
	RoleSalesRep:     "Sales Rep",
}

var roleOrder = func() map[Role]int {
	m := make(map[Role]int, len(AllRoles))
	for i, r := range AllRoles {
		m[r] = i
	}
	return m
}()

// ParseRole validates an external value against the closed set. Matching is
// exact; callers trim operator input before parsing.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	if _, ok := roleOrder[r]; !ok {
		return "", false
	}
	return r, true
}

// Valid reports whether r belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := roleOrder[r]
	return ok
}

// Label returns the display name for r.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	s := string(r)
	if s == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}

func (r Role) String() string {
	return string(r)
}
