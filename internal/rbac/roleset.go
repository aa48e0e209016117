package rbac

import "sort"

// RoleSet is an immutable, duplicate-free set of valid roles. The zero value
// is the empty set.
type RoleSet struct {
	m map[Role]struct{}
}

// NewRoleSet builds a set from roles, dropping duplicates and values outside
// the closed enumeration.
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			continue
		}
		m[r] = struct{}{}
	}
	return RoleSet{m: m}
}

// Has reports membership of a single role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s.m[role]
	return ok
}

// HasAny is the any-of check. It is false for an empty argument list.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// HasAll is the all-of check. It is vacuously true for an empty argument list.
func (s RoleSet) HasAll(roles ...Role) bool {
	for _, r := range roles {
		if !s.Has(r) {
			return false
		}
	}
	return true
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s.m)
}

// Slice returns the roles in canonical declaration order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.m))
	for r := range s.m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return roleOrder[out[i]] < roleOrder[out[j]] })
	return out
}

// Strings returns the role values in canonical order.
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Diff returns the roles in s that are not in other, in canonical order.
func (s RoleSet) Diff(other RoleSet) []Role {
	var out []Role
	for _, r := range s.Slice() {
		if !other.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Equal reports whether both sets hold the same roles.
func (s RoleSet) Equal(other RoleSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for r := range s.m {
		if !other.Has(r) {
			return false
		}
	}
	return true
}
