package rbac

import (
	"fmt"
	"log/slog"

	"github.com/nexus-console/nexus-console/internal/metrics"
)

// ClaimRoles is the ID-token claim carrying the principal's roles.
const ClaimRoles = "roles"

// ResolveRoles extracts the role set from identity-provider claims. The claim
// may be absent, a single string or a sequence of strings; unrecognised
// tokens are dropped and reported. It never panics: any other shape resolves
// to the empty set.
func ResolveRoles(claims map[string]any, logger *slog.Logger) (roles RoleSet) {
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("role claim extraction failed", "panic", fmt.Sprint(r))
			roles = RoleSet{}
		}
	}()

	raw, ok := claims[ClaimRoles]
	if !ok || raw == nil {
		return RoleSet{}
	}

	var tokens []string
	switch v := raw.(type) {
	case string:
		tokens = []string{v}
	case []string:
		tokens = v
	case []any:
		tokens = make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				rejectRoleToken(logger, fmt.Sprint(item), "non-string")
				continue
			}
			tokens = append(tokens, s)
		}
	default:
		logger.Warn("unsupported roles claim shape", "type", fmt.Sprintf("%T", raw))
		return RoleSet{}
	}

	parsed := make([]Role, 0, len(tokens))
	for _, token := range tokens {
		role, ok := ParseRole(token)
		if !ok {
			rejectRoleToken(logger, token, "unknown")
			continue
		}
		parsed = append(parsed, role)
	}
	return NewRoleSet(parsed...)
}

// ParseRoles validates raw role strings, returning the recognised set and
// the rejected values.
func ParseRoles(raw []string) (RoleSet, []string) {
	var (
		roles    []Role
		rejected []string
	)
	for _, s := range raw {
		role, ok := ParseRole(s)
		if !ok {
			rejected = append(rejected, s)
			continue
		}
		roles = append(roles, role)
	}
	return NewRoleSet(roles...), rejected
}

func rejectRoleToken(logger *slog.Logger, token, reason string) {
	metrics.RoleClaimsRejectedTotal.WithLabelValues(reason).Inc()
	logger.Debug("dropping role claim outside the closed set", "role", token, "reason", reason)
}
