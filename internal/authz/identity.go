package authz

import (
	"github.com/google/uuid"

	"github.com/confhub/backend/internal/models"
)

// Identity is the verified caller plus the role snapshot fetched once per request.
type Identity struct {
	UserID        uuid.UUID                 `json:"user_id"`
	Email         string                    `json:"email"`
	Organizations []models.OrgMembership    `json:"organizations"`
	Conferences   []models.ConfMembership   `json:"conferences"`
	Memberships   []models.TenantMembership `json:"memberships"`
}

// IdentityFromUser builds the snapshot from a user's role projection.
func IdentityFromUser(u *models.User) *Identity {
	return &Identity{
		UserID:        u.ID,
		Email:         u.Email,
		Organizations: u.Organizations,
		Conferences:   u.Conferences,
		Memberships:   u.Memberships,
	}
}

// OrgRole returns the caller's role in the organization, if any.
func (i *Identity) OrgRole(orgID uuid.UUID) (models.OrgRole, bool) {
	for _, m := range i.Organizations {
		if m.OrganizationID == orgID {
			return m.Role, true
		}
	}
	return "", false
}

// ConfRole returns the caller's role in the conference, if any.
func (i *Identity) ConfRole(confID uuid.UUID) (models.ConfRole, bool) {
	for _, m := range i.Conferences {
		if m.ConferenceID == confID {
			return m.Role, true
		}
	}
	return "", false
}

// TenantRole returns the caller's role in the tenant, if any.
func (i *Identity) TenantRole(tenantID uuid.UUID) (models.TenantRole, bool) {
	for _, m := range i.Memberships {
		if m.TenantID == tenantID {
			return m.Role, true
		}
	}
	return "", false
}
