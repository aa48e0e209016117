package rbac

import (
	"log/slog"
	"sync"
)

// Snapshot is the evaluation of every permission key for one principal at
// one point in time.
type Snapshot struct {
	Seq         uint64
	Roles       RoleSet
	Permissions map[PermissionKey]bool

	IsAdmin                    bool
	CanManageUsers             bool
	CanManageSalesAccounts     bool
	CanViewSalesAccountDetails bool
}

// DeniedSnapshot returns the all-false snapshot used for signed-out
// principals and after any resolution error.
func DeniedSnapshot(seq uint64) Snapshot {
	perms := make(map[PermissionKey]bool, len(PermissionKeys))
	for _, k := range PermissionKeys {
		perms[k] = false
	}
	return Snapshot{Seq: seq, Permissions: perms}
}

// Evaluate computes the full snapshot for roles.
func Evaluate(seq uint64, roles RoleSet) Snapshot {
	perms := make(map[PermissionKey]bool, len(PermissionKeys))
	for _, k := range PermissionKeys {
		group := k.RequiredGroup()
		perms[k] = group == nil || group.Allows(roles)
	}
	return Snapshot{
		Seq:                        seq,
		Roles:                      roles,
		Permissions:                perms,
		IsAdmin:                    IsAdmin(roles),
		CanManageUsers:             CanManageUsers(roles),
		CanManageSalesAccounts:     CanManageSalesAccounts(roles),
		CanViewSalesAccountDetails: CanViewSalesAccountDetails(roles),
	}
}

// Allowed returns the snapshot value for k; missing keys are denied.
func (s Snapshot) Allowed(k PermissionKey) bool {
	return s.Permissions[k]
}

// Update is one principal change as seen by a Tracker. Authenticated is
// false for a signed-out principal; Err is set when role resolution failed.
type Update struct {
	Seq           uint64
	Authenticated bool
	Roles         RoleSet
	Err           error
}

// Tracker holds the current snapshot and replaces it in full on every
// update. Updates whose sequence is not newer than the applied one are
// dropped, so overlapping deliveries cannot regress the snapshot.
type Tracker struct {
	logger *slog.Logger

	mu      sync.RWMutex
	applied uint64
	current Snapshot
}

// NewTracker returns a tracker holding the denied snapshot.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, current: DeniedSnapshot(0)}
}

// Apply recomputes the snapshot for u. It reports whether u was applied.
func (t *Tracker) Apply(u Update) bool {
	var next Snapshot
	switch {
	case u.Err != nil:
		t.logger.Error("resolving principal roles failed; denying all navigation", "seq", u.Seq, "error", u.Err)
		next = DeniedSnapshot(u.Seq)
	case !u.Authenticated:
		next = DeniedSnapshot(u.Seq)
	default:
		next = Evaluate(u.Seq, u.Roles)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if u.Seq <= t.applied && t.applied != 0 {
		t.logger.Warn("dropping out-of-order principal update", "seq", u.Seq, "applied", t.applied)
		return false
	}
	t.applied = u.Seq
	t.current = next
	return true
}

// Snapshot returns the current snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}
