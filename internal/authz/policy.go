package authz

import "github.com/confhub/backend/internal/models"

// Policy lists the roles that may call a route, per scope kind.
// A nil Policy means any authenticated caller is allowed.
type Policy struct {
	Org    []models.OrgRole
	Conf   []models.ConfRole
	Tenant []models.TenantRole
}

// OrgRoles is shorthand for a policy naming only organization roles.
func OrgRoles(roles ...models.OrgRole) *Policy {
	return &Policy{Org: roles}
}

// TenantRoles is shorthand for a policy naming only tenant roles.
func TenantRoles(roles ...models.TenantRole) *Policy {
	return &Policy{Tenant: roles}
}

// WithConf returns a copy of p that also accepts the given conference roles.
func (p *Policy) WithConf(roles ...models.ConfRole) *Policy {
	out := &Policy{}
	if p != nil {
		*out = *p
	}
	out.Conf = roles
	return out
}
