package statemachine

import (
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

// Policy maps a target status to the roles that may request it. It depends
// only on the caller's role and the target, never on the record.
type Policy[S ~string] map[S][]auth.Role

// Roles returns every role that may request at least one target, in the
// order auth.Roles lists them.
func (p Policy[S]) Roles() []auth.Role {
	seen := map[auth.Role]bool{}
	for _, roles := range p {
		for _, r := range roles {
			seen[r] = true
		}
	}
	var out []auth.Role
	for _, r := range auth.Roles() {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}

// Authorize applies the route-level role check and then the per-target one.
// Providers drive records through their lifecycle, so a target the policy
// does not name reaches the transition table for them. Every other role may
// request only the targets listed for it.
func (p Policy[S]) Authorize(rc auth.RequestContext, entity string, target S) error {
	if err := auth.GuardRoute(rc, p.Roles()...); err != nil {
		return err
	}
	roles, ok := p[target]
	if !ok {
		if rc.Role() == auth.RoleProvider {
			return nil
		}
		return apperr.Forbiddenf("role %s may not move %s to %s", rc.Role(), entity, target)
	}
	for _, r := range roles {
		if r == rc.Role() {
			return nil
		}
	}
	return apperr.Forbiddenf("role %s may not move %s to %s", rc.Role(), entity, target)
}
