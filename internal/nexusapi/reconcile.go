package nexusapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nexus-console/nexus-console/internal/metrics"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

// StepOp is the kind of a reconciliation step.
type StepOp string

const (
	OpRemove StepOp = "remove"
	OpAdd    StepOp = "add"
)

// Step is one role call issued by SetUserRoles.
type Step struct {
	Op   StepOp
	Role rbac.Role
}

func (s Step) String() string {
	return string(s.Op) + " " + string(s.Role)
}

// PlanRoleChanges computes the ordered calls that move current to desired:
// every removal first, then every addition, each in canonical role order.
func PlanRoleChanges(current, desired rbac.RoleSet) []Step {
	toRemove := current.Diff(desired)
	toAdd := desired.Diff(current)
	steps := make([]Step, 0, len(toRemove)+len(toAdd))
	for _, r := range toRemove {
		steps = append(steps, Step{Op: OpRemove, Role: r})
	}
	for _, r := range toAdd {
		steps = append(steps, Step{Op: OpAdd, Role: r})
	}
	return steps
}

// PartialUpdateError reports a reconciliation step that failed. Applied
// steps (possibly none) are not rolled back.
type PartialUpdateError struct {
	UserID  string
	Applied []Step
	Failed  Step
	Pending []Step
	Err     error
}

func (e *PartialUpdateError) Error() string {
	applied := make([]string, len(e.Applied))
	for i, s := range e.Applied {
		applied[i] = s.String()
	}
	return fmt.Sprintf("set roles for user %s: %s failed after [%s]: %v",
		e.UserID, e.Failed, strings.Join(applied, ", "), e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}

// SetUserRoles reconciles the user's roles to desired with one read and a
// strictly sequential series of remove then add calls. It returns the last
// record the backend sent. Current roles outside the closed set are left
// alone. A failure is surfaced to the caller's notifier exactly once. A
// failed role call yields a *PartialUpdateError together with the record
// reflecting the steps applied before it.
func (c *Client) SetUserRoles(ctx context.Context, userID string, desired rbac.RoleSet) (*User, error) {
	current, err := c.getUser(ctx, userID)
	if err != nil {
		return nil, c.report(ctx, err)
	}

	currentSet, unknown := current.RoleSet()
	if len(unknown) > 0 {
		c.logger().Warn("user holds roles outside the known set; leaving them untouched",
			"user_id", userID, "roles", unknown)
	}

	steps := PlanRoleChanges(currentSet, desired)
	latest := current
	for i, step := range steps {
		method := http.MethodPost
		if step.Op == OpRemove {
			method = http.MethodDelete
		}
		updated, err := c.roleCall(ctx, method, userID, step.Role)
		if err != nil {
			metrics.RoleReconcileStepsTotal.WithLabelValues(string(step.Op), "failure").Inc()
			return latest, c.report(ctx, &PartialUpdateError{
				UserID:  userID,
				Applied: steps[:i],
				Failed:  step,
				Pending: steps[i+1:],
				Err:     err,
			})
		}
		metrics.RoleReconcileStepsTotal.WithLabelValues(string(step.Op), "success").Inc()
		latest = updated
	}

	if len(steps) > 0 {
		c.logger().Info("user roles updated", "user_id", userID, "steps", len(steps), "roles", desired.Strings())
	}
	return latest, nil
}
