package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgMembership is one entry of the organization roles projected onto a user.
type OrgMembership struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           OrgRole   `json:"role"`
}

// ConfMembership is one entry of the conference roles projected onto a user.
type ConfMembership struct {
	ConferenceID uuid.UUID `json:"conference_id"`
	Role         ConfRole  `json:"role"`
}

// TenantMembership is one entry of the tenant roles projected onto a user.
type TenantMembership struct {
	TenantID uuid.UUID  `json:"tenant_id"`
	Role     TenantRole `json:"role"`
}

// User represents a platform user.
// Organizations, Conferences and Memberships are a read-only projection of the
// canonical member tables and are rebuilt whenever those change.
type User struct {
	ID            uuid.UUID          `json:"id"`
	Email         string             `json:"email"`
	Password      string             `json:"-"`
	Name          string             `json:"name"`
	EmailVerified bool               `json:"email_verified"`
	Organizations []OrgMembership    `json:"organizations"`
	Conferences   []ConfMembership   `json:"conferences"`
	Memberships   []TenantMembership `json:"memberships"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}
