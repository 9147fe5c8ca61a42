package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/pkg/apperr"
)

func TestAuthorize(t *testing.T) {
	orgID := uuid.New()
	otherOrg := uuid.New()
	confID := uuid.New()
	tenantID := uuid.New()

	owner := &Identity{UserID: uuid.New(), Organizations: []models.OrgMembership{{OrganizationID: orgID, Role: models.OrgRoleOwner}}}
	member := &Identity{UserID: uuid.New(), Organizations: []models.OrgMembership{{OrganizationID: orgID, Role: models.OrgRoleMember}}}
	outsider := &Identity{UserID: uuid.New(), Organizations: []models.OrgMembership{{OrganizationID: otherOrg, Role: models.OrgRoleOwner}}}
	speaker := &Identity{UserID: uuid.New(), Conferences: []models.ConfMembership{{ConferenceID: confID, Role: models.ConfRoleSpeaker}}}
	submitter := &Identity{UserID: uuid.New(), Memberships: []models.TenantMembership{{TenantID: tenantID, Role: models.TenantRoleSubmitter}}}

	adminPolicy := OrgRoles(models.OrgRoleOwner, models.OrgRoleAdmin)
	readConf := OrgRoles(models.OrgRoleOwner, models.OrgRoleAdmin, models.OrgRoleMember).
		WithConf(models.ConfRoleOwner, models.ConfRoleOrganizer, models.ConfRoleReviewer, models.ConfRoleSpeaker)

	tests := []struct {
		name   string
		policy *Policy
		id     *Identity
		scope  Scope
		want   error
	}{
		{"no identity", adminPolicy, nil, Scope{OrgID: orgID}, apperr.ErrUnauthenticated},
		{"no policy allows", nil, outsider, Scope{}, nil},
		{"owner allowed", adminPolicy, owner, Scope{OrgID: orgID}, nil},
		{"wrong role", adminPolicy, member, Scope{OrgID: orgID}, ErrInsufficientRole},
		{"no membership in org", adminPolicy, outsider, Scope{OrgID: orgID}, ErrNotAMember},
		{"org id missing", adminPolicy, owner, Scope{}, ErrScopeIDMissing},
		{"conf role satisfies mixed policy", readConf, speaker, Scope{OrgID: orgID, ConfID: confID}, nil},
		{"org role satisfies mixed policy", readConf, member, Scope{OrgID: orgID, ConfID: confID}, nil},
		{"mixed policy needs conf id", readConf, member, Scope{OrgID: orgID}, ErrScopeIDMissing},
		{"mixed policy outsider", readConf, outsider, Scope{OrgID: orgID, ConfID: confID}, ErrNotAMember},
		{"tenant role allowed", TenantRoles(models.TenantRoleSubmitter), submitter, Scope{TenantID: tenantID}, nil},
		{"tenant role insufficient", TenantRoles(models.TenantRoleOwner, models.TenantRoleOrganizer), submitter, Scope{TenantID: tenantID}, ErrInsufficientRole},
		{"tenant not a member", TenantRoles(models.TenantRoleOwner), owner, Scope{TenantID: tenantID}, ErrNotAMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.policy, tt.id, tt.scope)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorize_DenyReasonsAreForbidden(t *testing.T) {
	for _, err := range []error{ErrScopeIDMissing, ErrNotAMember, ErrInsufficientRole} {
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	}
	assert.NotErrorIs(t, ErrNotAMember, ErrInsufficientRole)
}

func TestPolicy_WithConfDoesNotMutate(t *testing.T) {
	base := OrgRoles(models.OrgRoleOwner)
	mixed := base.WithConf(models.ConfRoleOrganizer)

	assert.Empty(t, base.Conf)
	assert.Equal(t, []models.ConfRole{models.ConfRoleOrganizer}, mixed.Conf)
	assert.Equal(t, base.Org, mixed.Org)
}
