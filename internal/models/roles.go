package models

// OrgRole is a user's role inside an organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
)

// Valid reports whether r is a known organization role.
func (r OrgRole) Valid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	}
	return false
}

// ConfRole is a user's role inside a conference.
// OWNER and ADMIN are granted by conference creation; the rest come from invites.
type ConfRole string

const (
	ConfRoleOwner     ConfRole = "OWNER"
	ConfRoleAdmin     ConfRole = "ADMIN"
	ConfRoleOrganizer ConfRole = "ORGANIZER"
	ConfRoleReviewer  ConfRole = "REVIEWER"
	ConfRoleSpeaker   ConfRole = "SPEAKER"
)

// Valid reports whether r is a known conference role.
func (r ConfRole) Valid() bool {
	switch r {
	case ConfRoleOwner, ConfRoleAdmin, ConfRoleOrganizer, ConfRoleReviewer, ConfRoleSpeaker:
		return true
	}
	return false
}

// TenantRole is the flat role of a user inside a tenant.
type TenantRole string

const (
	TenantRoleOwner     TenantRole = "OWNER"
	TenantRoleOrganizer TenantRole = "ORGANIZER"
	TenantRoleReviewer  TenantRole = "REVIEWER"
	TenantRoleSubmitter TenantRole = "SUBMITTER"
)

// Valid reports whether r is a known tenant role.
func (r TenantRole) Valid() bool {
	switch r {
	case TenantRoleOwner, TenantRoleOrganizer, TenantRoleReviewer, TenantRoleSubmitter:
		return true
	}
	return false
}

// CanManageMembers reports whether the role may grant or revoke other users' memberships.
func (r TenantRole) CanManageMembers() bool {
	return r == TenantRoleOwner || r == TenantRoleOrganizer
}
