// Package store persists users, scopes, canonical memberships and invites.
//
// The role lists embedded on users (organizations, conferences, memberships)
// are a projection of the member tables. Code that changes a member table calls
// RefreshUserRoles for the affected users inside the same transaction; nothing
// writes the projection directly.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/confhub/backend/internal/models"
)

// Queries is every read and write the services need. Implementations are
// bound either to the connection pool or to a single transaction.
type Queries interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserName(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
	// UpdateUserEmail changes the email and clears email_verified. A taken email is ErrDuplicate.
	UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error)
	// RefreshUserRoles rebuilds the role projection of the given users from the member tables.
	RefreshUserRoles(ctx context.Context, userIDs ...uuid.UUID) error

	CreateOrganization(ctx context.Context, o *models.Organization) error
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, o *models.Organization) error
	DeleteOrganization(ctx context.Context, id uuid.UUID) error
	ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	AddOrganizationConference(ctx context.Context, orgID, confID uuid.UUID) error
	RemoveOrganizationConference(ctx context.Context, orgID, confID uuid.UUID) error

	// AddOrganizationMember inserts the membership if absent and reports whether it did.
	AddOrganizationMember(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) (bool, error)
	GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error)
	ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error)
	ListOrganizationMemberIDs(ctx context.Context, orgID uuid.UUID, role models.OrgRole) ([]uuid.UUID, error)
	RemoveOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error
	// DeleteOrganizationMembers removes every member of orgID and returns their user ids.
	DeleteOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)

	CreateConference(ctx context.Context, c *models.Conference) error
	GetConferenceByID(ctx context.Context, id uuid.UUID) (*models.Conference, error)
	// FindConference returns a conference of orgID with the given name or slug, or nil.
	FindConference(ctx context.Context, orgID uuid.UUID, name, slug string) (*models.Conference, error)
	ListConferences(ctx context.Context, orgID uuid.UUID) ([]*models.Conference, error)
	UpdateConference(ctx context.Context, c *models.Conference) error
	DeleteConference(ctx context.Context, id uuid.UUID) error

	AddConferenceMember(ctx context.Context, confID, userID uuid.UUID, role models.ConfRole) (bool, error)
	GetConferenceMember(ctx context.Context, confID, userID uuid.UUID) (*models.ConferenceMember, error)
	ListConferenceMembers(ctx context.Context, confID uuid.UUID) ([]models.Member, error)
	RemoveConferenceMember(ctx context.Context, confID, userID uuid.UUID) error
	// RemoveUserConferenceMemberships drops userID from every conference of orgID.
	RemoveUserConferenceMemberships(ctx context.Context, orgID, userID uuid.UUID) error
	// DeleteConferenceMembers removes every member of confID and returns their user ids.
	DeleteConferenceMembers(ctx context.Context, confID uuid.UUID) ([]uuid.UUID, error)

	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	// CreateMembership inserts the canonical record; an existing pair is a conflict.
	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error)
	ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error)
	UpdateMembershipRole(ctx context.Context, tenantID, userID uuid.UUID, role models.TenantRole) (*models.Membership, error)
	DeleteMembership(ctx context.Context, tenantID, userID uuid.UUID) error

	CreateInvite(ctx context.Context, inv *models.Invite) error
	// GetInviteByToken returns an unexpired invite by exact token match.
	GetInviteByToken(ctx context.Context, token string, now time.Time) (*models.Invite, error)
	// FindOutstandingInvite returns the unexpired invite for the (email, org, conf) tuple, or nil.
	FindOutstandingInvite(ctx context.Context, email string, orgID, confID *uuid.UUID, now time.Time) (*models.Invite, error)
	ListInvites(ctx context.Context, orgID uuid.UUID, confID *uuid.UUID, now time.Time) ([]*models.Invite, error)
	// DeleteInvite removes the invite and reports whether a row existed.
	DeleteInvite(ctx context.Context, token string) (bool, error)
	DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}

// Store is Queries plus transactions.
type Store interface {
	Queries
	// WithTx runs fn in one transaction. Any error from fn aborts every write
	// fn made and is returned unchanged.
	WithTx(ctx context.Context, fn func(q Queries) error) error
}

// RolesChangedFunc is called after the role projection of userIDs changed and
// the change is durable (after commit when inside a transaction).
type RolesChangedFunc func(ctx context.Context, userIDs []uuid.UUID)
