// Package authz decides whether a caller may act on a tenant-scoped resource.
// Decisions are computed from an already loaded Identity and never perform I/O.
package authz

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/confhub/backend/pkg/apperr"
)

// Deny reasons. All of them are forbidden errors; the distinction is for logs and tests only.
var (
	ErrScopeIDMissing   = fmt.Errorf("%w: scope id missing", apperr.ErrForbidden)
	ErrNotAMember       = fmt.Errorf("%w: not a member", apperr.ErrForbidden)
	ErrInsufficientRole = fmt.Errorf("%w: insufficient role", apperr.ErrForbidden)
)

// Authorize returns nil when id satisfies p within scope, otherwise a deny reason.
func Authorize(p *Policy, id *Identity, scope Scope) error {
	if id == nil {
		return apperr.ErrUnauthenticated
	}
	if p == nil {
		return nil
	}
	if len(p.Org) > 0 && scope.OrgID == uuid.Nil {
		return ErrScopeIDMissing
	}
	if len(p.Conf) > 0 && scope.ConfID == uuid.Nil {
		return ErrScopeIDMissing
	}
	if len(p.Tenant) > 0 && scope.TenantID == uuid.Nil {
		return ErrScopeIDMissing
	}

	member := false
	if len(p.Org) > 0 {
		if role, ok := id.OrgRole(scope.OrgID); ok {
			member = true
			if slices.Contains(p.Org, role) {
				return nil
			}
		}
	}
	if len(p.Conf) > 0 {
		if role, ok := id.ConfRole(scope.ConfID); ok {
			member = true
			if slices.Contains(p.Conf, role) {
				return nil
			}
		}
	}
	if len(p.Tenant) > 0 {
		if role, ok := id.TenantRole(scope.TenantID); ok {
			member = true
			if slices.Contains(p.Tenant, role) {
				return nil
			}
		}
	}
	if !member {
		return ErrNotAMember
	}
	return ErrInsufficientRole
}
